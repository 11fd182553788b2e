package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/models"

	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventHandler(e *env) *EventHandler {
	return NewEventHandler(e.db, "invite-secret", 72)
}

func TestEventCreateTierValidation(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)

	w := postJSON(t, h.Create, &e.owner, EventRequest{Name: "Reunion", GuestLimit: 250, PhotoCapLimit: 15})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info := decode[EventInfo](t, w)
	assert.Equal(t, 250, info.GuestLimit)
	assert.Equal(t, 15, info.PhotoCapLimit)
	assert.True(t, info.Active)

	// Unknown tier and mismatched cap are both rejected.
	w = postJSON(t, h.Create, &e.owner, EventRequest{Name: "Bad", GuestLimit: 123, PhotoCapLimit: 15})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = postJSON(t, h.Create, &e.owner, EventRequest{Name: "Bad", GuestLimit: 250, PhotoCapLimit: 25})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Custom tier must exceed the largest enumerated limits.
	g, p := 2000, 50
	w = postJSON(t, h.Create, &e.owner, EventRequest{
		Name: "Big", IsCustomTier: true, CustomGuestLimit: &g, CustomPhotoCapLimit: &p,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info = decode[EventInfo](t, w)
	assert.Equal(t, 2000, info.GuestLimit)
	assert.Equal(t, 50, info.PhotoCapLimit)

	g = 500
	w = postJSON(t, h.Create, &e.owner, EventRequest{
		Name: "TooSmall", IsCustomTier: true, CustomGuestLimit: &g, CustomPhotoCapLimit: &p,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventSaveOwnership(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)

	other, err := models.UserCreate(e.db, "Other", "other@example.com", "password123")
	require.NoError(t, err)

	req := EventRequest{ID: e.event.ID, Name: "Renamed", GuestLimit: 10, PhotoCapLimit: 5}
	w := postJSON(t, h.Save, &other, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postJSON(t, h.Save, &e.owner, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Renamed", decode[EventInfo](t, w).Name)
}

func TestEventGetAccess(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)

	other := models.Event{OwnerID: e.owner.ID, Name: "Other", GuestLimit: 10, PhotoCapLimit: 5, Active: true}
	require.NoError(t, e.db.Create(&other).Error)

	w := getQuery(t, h.Get, &e.guest, fmt.Sprintf("event_id=%d", e.event.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	w = getQuery(t, h.Get, &e.guest, fmt.Sprintf("event_id=%d", other.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = getQuery(t, h.Get, &e.guest, "event_id=9999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventShareOwnerOnly(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)

	w := getQuery(t, h.Share, &e.guest, fmt.Sprintf("event_id=%d", e.event.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = getQuery(t, h.Share, &e.owner, fmt.Sprintf("event_id=%d", e.event.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]string](t, w)
	assert.NotEmpty(t, resp["token"])
	assert.Contains(t, resp["path"], "/guest/join?token=")
}

// guestJoinEngine runs GuestJoin behind real session middleware, since
// redeeming an invite logs the new guest in.
func guestJoinEngine(e *env, h *EventHandler) *gin.Engine {
	engine := gin.New()
	store := gormsessions.NewStore(e.db, true, []byte("session-secret"))
	engine.Use(sessions.Sessions("token", store))
	engine.POST("/guest/join", h.GuestJoin)
	return engine
}

func TestGuestJoin(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)
	engine := guestJoinEngine(e, h)

	w := getQuery(t, h.Share, &e.owner, fmt.Sprintf("event_id=%d", e.event.ID))
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)["token"]

	body, _ := json.Marshal(GuestJoinRequest{Token: token, Name: "New Guest"})
	req := httptest.NewRequest("POST", "/guest/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"), "joining must start a session")

	var guest models.User
	require.NoError(t, e.db.Where("name = ? AND is_guest = ?", "New Guest", true).First(&guest).Error)
	require.NotNil(t, guest.GuestEventID)
	assert.Equal(t, e.event.ID, *guest.GuestEventID)
}

func TestGuestJoinBadToken(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)
	engine := guestJoinEngine(e, h)

	body, _ := json.Marshal(GuestJoinRequest{Token: "garbage", Name: "Crasher"})
	req := httptest.NewRequest("POST", "/guest/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuestJoinInactiveEvent(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)
	engine := guestJoinEngine(e, h)

	w := getQuery(t, h.Share, &e.owner, fmt.Sprintf("event_id=%d", e.event.ID))
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)["token"]

	require.NoError(t, e.db.Model(&e.event).Update("active", false).Error)

	body, _ := json.Marshal(GuestJoinRequest{Token: token, Name: "Late Guest"})
	req := httptest.NewRequest("POST", "/guest/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventListScoping(t *testing.T) {
	e := newEnv(t)
	h := newEventHandler(e)

	other, err := models.UserCreate(e.db, "Other", "other@example.com", "password123")
	require.NoError(t, err)
	otherEvent := models.Event{OwnerID: other.ID, Name: "Theirs", GuestLimit: 10, PhotoCapLimit: 5, Active: true}
	require.NoError(t, e.db.Create(&otherEvent).Error)

	w := getQuery(t, h.List, &e.owner, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]EventInfo](t, w), 1)

	w = getQuery(t, h.List, &e.guest, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]EventInfo](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, e.event.ID, list[0].ID)
}
