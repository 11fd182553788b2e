package handlers

import (
	"errors"
	"net/http"
	"time"

	"server/auth"
	"server/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EventHandler struct {
	DB          *gorm.DB
	InviteKey   string
	InviteHours int
}

func NewEventHandler(db *gorm.DB, inviteKey string, inviteHours int) *EventHandler {
	return &EventHandler{DB: db, InviteKey: inviteKey, InviteHours: inviteHours}
}

type EventRequest struct {
	ID                  uint64 `json:"id"`
	Name                string `json:"name" binding:"required,max=300"`
	GuestLimit          int    `json:"guest_limit"`
	PhotoCapLimit       int    `json:"photo_cap_limit"`
	IsCustomTier        bool   `json:"is_custom_tier"`
	CustomGuestLimit    *int   `json:"custom_guest_limit"`
	CustomPhotoCapLimit *int   `json:"custom_photo_cap_limit"`
	Active              *bool  `json:"active"`
}

type EventInfo struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	OwnerID       uint64 `json:"owner_id"`
	GuestLimit    int    `json:"guest_limit"`
	PhotoCapLimit int    `json:"photo_cap_limit"`
	IsCustomTier  bool   `json:"is_custom_tier"`
	Active        bool   `json:"active"`
	CreatedAt     int64  `json:"created_at"`
}

func eventInfo(e *models.Event) EventInfo {
	info := EventInfo{
		ID:            e.ID,
		Name:          e.Name,
		OwnerID:       e.OwnerID,
		GuestLimit:    e.GuestLimit,
		PhotoCapLimit: e.PhotoCapLimit,
		IsCustomTier:  e.IsCustomTier,
		Active:        e.Active,
		CreatedAt:     e.CreatedAt,
	}
	if e.IsCustomTier {
		info.GuestLimit = *e.CustomGuestLimit
		info.PhotoCapLimit = *e.CustomPhotoCapLimit
	}
	return info
}

// loadEvent fetches an event or writes the not-found response.
func loadEvent(c *gin.Context, db *gorm.DB, eventID uint64) (*models.Event, bool) {
	event := models.Event{}
	err := db.First(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, Response{"event not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return nil, false
	}
	return &event, true
}

func (h *EventHandler) Create(c *gin.Context, user *models.User) {
	var r EventRequest
	if !bindJSON(c, &r) {
		return
	}
	event := models.Event{
		OwnerID:             user.ID,
		Name:                r.Name,
		GuestLimit:          r.GuestLimit,
		PhotoCapLimit:       r.PhotoCapLimit,
		IsCustomTier:        r.IsCustomTier,
		CustomGuestLimit:    r.CustomGuestLimit,
		CustomPhotoCapLimit: r.CustomPhotoCapLimit,
		Active:              true,
	}
	if err := models.ValidateTierConfig(&event); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err := h.DB.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	c.JSON(http.StatusOK, eventInfo(&event))
}

func (h *EventHandler) Save(c *gin.Context, user *models.User) {
	var r EventRequest
	if !bindJSON(c, &r) {
		return
	}
	event, ok := loadEvent(c, h.DB, r.ID)
	if !ok {
		return
	}
	if event.OwnerID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, Response{"only the event owner can change it"})
		return
	}
	event.Name = r.Name
	event.GuestLimit = r.GuestLimit
	event.PhotoCapLimit = r.PhotoCapLimit
	event.IsCustomTier = r.IsCustomTier
	event.CustomGuestLimit = r.CustomGuestLimit
	event.CustomPhotoCapLimit = r.CustomPhotoCapLimit
	if r.Active != nil {
		// Soft-disable only; events with media are never hard-deleted.
		event.Active = *r.Active
	}
	if err := models.ValidateTierConfig(event); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err := h.DB.Save(event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	c.JSON(http.StatusOK, eventInfo(event))
}

func (h *EventHandler) List(c *gin.Context, user *models.User) {
	var events []models.Event
	query := h.DB.Order("created_at DESC")
	if user.IsGuest && user.GuestEventID != nil {
		query = query.Where("id = ?", *user.GuestEventID)
	} else if !user.IsAdmin {
		query = query.Where("owner_id = ?", user.ID)
	}
	if err := query.Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	result := make([]EventInfo, 0, len(events))
	for i := range events {
		result = append(result, eventInfo(&events[i]))
	}
	c.JSON(http.StatusOK, result)
}

type EventIDRequest struct {
	EventID uint64 `form:"event_id" json:"event_id" binding:"required"`
}

func (h *EventHandler) Get(c *gin.Context, user *models.User) {
	var r EventIDRequest
	if !bindQuery(c, &r) {
		return
	}
	event, ok := loadEvent(c, h.DB, r.EventID)
	if !ok {
		return
	}
	if !user.CanAccessEvent(event) {
		c.JSON(http.StatusForbidden, Response{"access denied"})
		return
	}
	c.JSON(http.StatusOK, eventInfo(event))
}

// Share mints an invite link token for the event. Owner only.
func (h *EventHandler) Share(c *gin.Context, user *models.User) {
	var r EventIDRequest
	if !bindQuery(c, &r) {
		return
	}
	event, ok := loadEvent(c, h.DB, r.EventID)
	if !ok {
		return
	}
	if event.OwnerID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, Response{"only the event owner can share it"})
		return
	}
	token, err := auth.MintInviteToken(event.ID, h.InviteKey, time.Duration(h.InviteHours)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"could not create invite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "path": "/guest/join?token=" + token})
}

type GuestJoinRequest struct {
	Token string `json:"token" binding:"required"`
	Name  string `json:"name" binding:"required,max=100"`
}

// GuestJoin redeems an invite token: creates a guest account scoped to the
// event and logs it in. Unauthenticated by design.
func (h *EventHandler) GuestJoin(c *gin.Context) {
	var r GuestJoinRequest
	if !bindJSON(c, &r) {
		return
	}
	eventID, err := auth.ParseInviteToken(r.Token, h.InviteKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, Response{err.Error()})
		return
	}
	event, ok := loadEvent(c, h.DB, eventID)
	if !ok {
		return
	}
	if !event.Active {
		c.JSON(http.StatusForbidden, Response{"this event is no longer active"})
		return
	}
	guest, err := models.GuestCreate(h.DB, r.Name, event.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	auth.LoadSession(c).LoginUser(guest.ID)
	c.JSON(http.StatusOK, gin.H{"user_id": guest.ID, "event": eventInfo(event)})
}
