package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"server/faces"
	"server/models"
	"server/processing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const fakePublicBase = "https://files.test/"

// fakeStore is an in-memory storage.API double. Uploads are simulated by
// marking keys as present.
type fakeStore struct {
	uploaded map[string]bool
	failURLs bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploaded: map[string]bool{}}
}

func (s *fakeStore) NewUploadURL(key, mimeType string) (string, string, error) {
	if s.failURLs {
		return "", "", errors.New("presign failed")
	}
	return "https://upload.test/" + key, fakePublicBase + key, nil
}

func (s *fakeStore) Exists(key string) bool {
	return s.uploaded[key]
}

func (s *fakeStore) KeyForURL(url string) (string, error) {
	if len(url) < len(fakePublicBase) || url[:len(fakePublicBase)] != fakePublicBase {
		return "", errors.New("storage: URL is not anchored to the configured storage")
	}
	return url[len(fakePublicBase):], nil
}

func (s *fakeStore) Save(key, mimeType string, reader io.Reader) error {
	s.uploaded[key] = true
	return nil
}

func (s *fakeStore) Load(key string, writer io.Writer) error { return errors.New("not used") }
func (s *fakeStore) Delete(key string) error                 { delete(s.uploaded, key); return nil }

// fakeFaces serves canned detections per image URL and records discarded
// persisted handles.
type fakeFaces struct {
	detections map[string][]faces.DetectedFace
	detectErr  error
	persistErr error
	forgotten  []string
}

func (f *fakeFaces) Detect(ctx context.Context, imageURL string) ([]faces.DetectedFace, error) {
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return f.detections[imageURL], nil
}

func (f *fakeFaces) Persist(ctx context.Context, faceID string) (string, error) {
	if f.persistErr != nil {
		return "", f.persistErr
	}
	return "p-" + faceID, nil
}

func (f *fakeFaces) Compare(ctx context.Context, faceID, persistedFaceID string) (float64, error) {
	return 0, nil
}

func (f *fakeFaces) Forget(ctx context.Context, persistedFaceID string) error {
	f.forgotten = append(f.forgotten, persistedFaceID)
	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

type env struct {
	db     *gorm.DB
	store  *fakeStore
	faces  *fakeFaces
	queue  *processing.Queue
	owner  models.User
	guest  models.User
	event  models.Event
}

// newEnv builds a tier-10 event (photo cap 5) with an owner and one guest.
func newEnv(t *testing.T) *env {
	t.Helper()
	db := testDB(t)
	store := newFakeStore()
	client := &fakeFaces{detections: map[string][]faces.DetectedFace{}}

	owner, err := models.UserCreate(db, "Owner", "owner@example.com", "password123")
	require.NoError(t, err)
	event := models.Event{OwnerID: owner.ID, Name: "Wedding", GuestLimit: 10, PhotoCapLimit: 5, Active: true}
	require.NoError(t, db.Create(&event).Error)
	guest, err := models.GuestCreate(db, "Plus One", event.ID)
	require.NoError(t, err)

	return &env{
		db:    db,
		store: store,
		faces: client,
		queue: processing.NewQueue(db, client, store, 1, 1),
		owner: owner,
		guest: guest,
		event: event,
	}
}

// postJSON drives one authenticated handler with a JSON body.
func postJSON(t *testing.T, handler func(*gin.Context, *models.User), user *models.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c, user)
	return w
}

// getQuery drives one authenticated handler with a query string.
func getQuery(t *testing.T, handler func(*gin.Context, *models.User), user *models.User, query string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	handler(c, user)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
