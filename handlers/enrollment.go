package handlers

import (
	"log"
	"net/http"

	"server/faces"
	"server/models"
	"server/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentHandler manages reference-face enrollment. Enrollment photos use
// the same two-phase upload as gallery media but sit outside the gallery and
// the quota count.
type EnrollmentHandler struct {
	DB    *gorm.DB
	Store storage.API
	Faces faces.Client
}

func NewEnrollmentHandler(db *gorm.DB, store storage.API, client faces.Client) *EnrollmentHandler {
	return &EnrollmentHandler{DB: db, Store: store, Faces: client}
}

func (h *EnrollmentHandler) NewUploadURL(c *gin.Context, user *models.User) {
	var r UploadURLRequest
	if !bindJSON(c, &r) {
		return
	}
	if err := models.ValidateMimeType(r.MimeType); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if models.MediaKindFor(r.MimeType) != models.MediaKindImage {
		c.JSON(http.StatusBadRequest, Response{"enrollment requires a still image"})
		return
	}
	event, ok := loadEvent(c, h.DB, r.EventID)
	if !ok {
		return
	}
	if !event.Active {
		c.JSON(http.StatusForbidden, Response{"this event is no longer active"})
		return
	}
	if !user.CanAccessEvent(event) {
		c.JSON(http.StatusForbidden, Response{"access denied"})
		return
	}
	key := storage.NewMediaKey(event.ID, user.ID, storage.PurposeEnroll, r.FileName)
	uploadURL, publicURL, err := h.Store.NewUploadURL(key, r.MimeType)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{"could not create upload URL"})
		return
	}
	c.JSON(http.StatusOK, UploadURLResponse{
		StorageKey: key,
		UploadURL:  uploadURL,
		PublicURL:  publicURL,
	})
}

type EnrollConfirmRequest struct {
	EventID uint64      `json:"event_id" binding:"required"`
	Media   ConfirmItem `json:"media" binding:"required"`
}

type ProfileInfo struct {
	ID         uint64  `json:"id"`
	EventID    uint64  `json:"event_id"`
	UserID     uint64  `json:"user_id"`
	MediaID    uint64  `json:"media_id"`
	Confidence float64 `json:"confidence"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

func profileInfo(p *models.UserFaceProfile) ProfileInfo {
	return ProfileInfo{
		ID:         p.ID,
		EventID:    p.EventID,
		UserID:     p.UserID,
		MediaID:    p.EnrollmentMediaID,
		Confidence: p.Confidence,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// Confirm commits an enrollment photo and builds or replaces the caller's
// face profile for the event. Detection runs synchronously here: enrollment
// must report its outcome in the response, unlike gallery uploads.
func (h *EnrollmentHandler) Confirm(c *gin.Context, user *models.User) {
	var r EnrollConfirmRequest
	if !bindJSON(c, &r) {
		return
	}
	event, ok := loadEvent(c, h.DB, r.EventID)
	if !ok {
		return
	}
	if !event.Active {
		c.JSON(http.StatusForbidden, Response{"this event is no longer active"})
		return
	}
	if !user.CanAccessEvent(event) {
		c.JSON(http.StatusForbidden, Response{"access denied"})
		return
	}
	if err := models.ValidateFileSize(r.Media.FileSize); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if models.MediaKindFor(r.Media.MimeType) != models.MediaKindImage {
		c.JSON(http.StatusBadRequest, Response{"enrollment requires a still image"})
		return
	}
	key, err := h.Store.KeyForURL(r.Media.URL)
	if err != nil || key != r.Media.StorageKey {
		c.JSON(http.StatusBadRequest, Response{"URL does not match the declared storage key"})
		return
	}
	info, err := storage.ParseKey(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if info.EventID != event.ID || info.UserID != user.ID || info.Purpose != storage.PurposeEnroll {
		c.JSON(http.StatusBadRequest, Response{"storage key belongs to a different namespace"})
		return
	}
	if !h.Store.Exists(key) {
		c.JSON(http.StatusBadRequest, Response{"file was not uploaded"})
		return
	}

	faceList, err := h.Faces.Detect(c.Request.Context(), r.Media.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{err.Error()})
		return
	}
	if len(faceList) == 0 {
		c.JSON(http.StatusBadRequest, Response{"no face detected in the enrollment photo"})
		return
	}
	if len(faceList) > 1 {
		c.JSON(http.StatusBadRequest, Response{"enrollment photo must contain exactly one face"})
		return
	}
	face := faceList[0]
	persistedID, err := h.Faces.Persist(c.Request.Context(), face.FaceID)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{err.Error()})
		return
	}

	media := models.EventMedia{
		EventID:          event.ID,
		UploaderID:       user.ID,
		Kind:             models.MediaKindImage,
		Name:             r.Media.FileName,
		MimeType:         r.Media.MimeType,
		FileSize:         r.Media.FileSize,
		StorageKey:       key,
		PublicURL:        r.Media.URL,
		IsFaceEnrollment: true,
	}
	profile := models.UserFaceProfile{
		UserID:            user.ID,
		EventID:           event.ID,
		PersistedFaceID:   persistedID,
		ExternalFaceID:    face.FaceID,
		RectTop:           face.Rectangle.Top,
		RectLeft:          face.Rectangle.Left,
		RectWidth:         face.Rectangle.Width,
		RectHeight:        face.Rectangle.Height,
		Attributes:        []byte(face.Attributes),
		Confidence:        face.Confidence,
		Active:            true,
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&media).Error; err != nil {
			return err
		}
		profile.EnrollmentMediaID = media.ID
		// Re-enrollment replaces the profile in place; the old persisted
		// face handle is overwritten and existing identifications stand.
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"persisted_face_id", "external_face_id", "enrollment_media_id",
				"rect_top", "rect_left", "rect_width", "rect_height",
				"attributes", "confidence", "active", "updated_at",
			}),
		}).Create(&profile).Error
	})
	if err != nil {
		// The handle was persisted before the row; do not leak it.
		if ferr := h.Faces.Forget(c.Request.Context(), persistedID); ferr != nil {
			log.Printf("enrollment: could not discard persisted face %s: %v", persistedID, ferr)
		}
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	c.JSON(http.StatusOK, profileInfo(&profile))
}

// Get returns the caller's profile for the event, 404 when none exists.
func (h *EnrollmentHandler) Get(c *gin.Context, user *models.User) {
	var r EventIDRequest
	if !bindQuery(c, &r) {
		return
	}
	profile := models.UserFaceProfile{}
	err := h.DB.Where("user_id = ? AND event_id = ?", user.ID, r.EventID).First(&profile).Error
	if err != nil {
		c.JSON(http.StatusNotFound, Response{"no face profile enrolled for this event"})
		return
	}
	c.JSON(http.StatusOK, profileInfo(&profile))
}

// Delete removes the caller's profile. Identifications already made from it
// are kept; only future matching stops.
func (h *EnrollmentHandler) Delete(c *gin.Context, user *models.User) {
	var r EventIDRequest
	if !bindJSON(c, &r) {
		return
	}
	result := h.DB.Where("user_id = ? AND event_id = ?", user.ID, r.EventID).
		Delete(&models.UserFaceProfile{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, Response{"no face profile enrolled for this event"})
		return
	}
	c.JSON(http.StatusOK, Response{})
}
