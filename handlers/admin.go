package handlers

import (
	"net/http"

	"server/faces"
	"server/models"
	"server/processing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler exposes per-event pipeline statistics and the retrain
// operation to event owners and admins.
type AdminHandler struct {
	DB        *gorm.DB
	Faces     faces.Client
	Queue     *processing.Queue
	Threshold float64
}

func NewAdminHandler(db *gorm.DB, client faces.Client, queue *processing.Queue, threshold float64) *AdminHandler {
	return &AdminHandler{DB: db, Faces: client, Queue: queue, Threshold: threshold}
}

func (h *AdminHandler) ownedEvent(c *gin.Context, user *models.User, eventID uint64) (*models.Event, bool) {
	event, ok := loadEvent(c, h.DB, eventID)
	if !ok {
		return nil, false
	}
	if event.OwnerID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, Response{"only the event owner can do this"})
		return nil, false
	}
	return event, true
}

type EventStats struct {
	MediaCount      int64  `json:"media_count"`
	DetectionCount  int64  `json:"detection_count"`
	IdentifiedCount int64  `json:"identified_count"`
	ProfileCount    int64  `json:"profile_count"`
	QueueFailures   uint64 `json:"queue_failures"`
}

func (h *AdminHandler) Stats(c *gin.Context, user *models.User) {
	var r EventIDRequest
	if !bindQuery(c, &r) {
		return
	}
	event, ok := h.ownedEvent(c, user, r.EventID)
	if !ok {
		return
	}
	stats := EventStats{QueueFailures: h.Queue.Failures()}
	err := h.DB.Model(&models.EventMedia{}).
		Where("event_id = ? AND is_face_enrollment = ? AND active = ?", event.ID, false, true).
		Count(&stats.MediaCount).Error
	if err == nil {
		err = h.DB.Model(&models.FaceDetection{}).
			Where("event_id = ? AND active = ?", event.ID, true).
			Count(&stats.DetectionCount).Error
	}
	if err == nil {
		err = h.DB.Model(&models.FaceDetection{}).
			Where("event_id = ? AND active = ? AND is_identified = ?", event.ID, true, true).
			Count(&stats.IdentifiedCount).Error
	}
	if err == nil {
		err = h.DB.Model(&models.UserFaceProfile{}).
			Where("event_id = ? AND active = ?", event.ID, true).
			Count(&stats.ProfileCount).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Retrain re-runs detection and identification over the whole event. It runs
// in-request: the caller is an operator who wants the final counts, and the
// underlying work is already idempotent.
func (h *AdminHandler) Retrain(c *gin.Context, user *models.User) {
	var r EventIDRequest
	if !bindJSON(c, &r) {
		return
	}
	event, ok := h.ownedEvent(c, user, r.EventID)
	if !ok {
		return
	}
	stats, err := processing.Retrain(c.Request.Context(), h.DB, h.Faces, event.ID, h.Threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
