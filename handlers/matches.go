package handlers

import (
	"errors"
	"net/http"

	"server/matching"
	"server/models"

	"github.com/gin-gonic/gin"
)

// MatchHandler serves the "photos containing me" view on top of the matching
// service.
type MatchHandler struct {
	Matcher *matching.Service
}

func NewMatchHandler(matcher *matching.Service) *MatchHandler {
	return &MatchHandler{Matcher: matcher}
}

type MatchListRequest struct {
	EventID   uint64  `form:"event_id" binding:"required"`
	Threshold float64 `form:"threshold"`
	Page      int     `form:"page"`
	Limit     int     `form:"limit"`
}

func (h *MatchHandler) List(c *gin.Context, user *models.User) {
	var r MatchListRequest
	if !bindQuery(c, &r) {
		return
	}
	event, ok := loadEvent(c, h.Matcher.DB, r.EventID)
	if !ok {
		return
	}
	if !user.CanAccessEvent(event) {
		c.JSON(http.StatusForbidden, Response{"access denied"})
		return
	}
	media, err := h.Matcher.ListUserMedia(c.Request.Context(), event.ID, user.ID, r.Threshold, r.Page, r.Limit)
	if errors.Is(err, matching.ErrNoProfile) {
		c.JSON(http.StatusNotFound, Response{err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	result := make([]MediaInfo, 0, len(media))
	for i := range media {
		result = append(result, mediaInfo(&media[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"threshold": h.Matcher.ClampThreshold(r.Threshold),
		"media":     result,
	})
}
