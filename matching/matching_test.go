package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"server/faces"
	"server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeClient scores comparisons from a fixed table keyed by
// "externalFaceID/persistedFaceID" and counts the calls made.
type fakeClient struct {
	scores   map[string]float64
	compares int
}

func (f *fakeClient) Detect(ctx context.Context, imageURL string) ([]faces.DetectedFace, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) Persist(ctx context.Context, faceID string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeClient) Forget(ctx context.Context, persistedFaceID string) error {
	return errors.New("not used")
}

func (f *fakeClient) Compare(ctx context.Context, faceID, persistedFaceID string) (float64, error) {
	f.compares++
	score, ok := f.scores[faceID+"/"+persistedFaceID]
	if !ok {
		return 0, nil
	}
	return score, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func TestClampThreshold(t *testing.T) {
	s := &Service{DefaultThreshold: 0.75}
	assert.Equal(t, 0.75, s.ClampThreshold(0))
	assert.Equal(t, 0.5, s.ClampThreshold(0.5))
	assert.Equal(t, MinThreshold, s.ClampThreshold(0.01))
	assert.Equal(t, MinThreshold, s.ClampThreshold(-3))
	assert.Equal(t, MaxThreshold, s.ClampThreshold(2))
}

type fixture struct {
	db      *gorm.DB
	client  *fakeClient
	service *Service
	event   models.Event
	viewer  models.User
}

// setupFixture builds one event with three gallery photos and a fourth face
// on the second photo, plus an enrolled profile for the viewer.
func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	client := &fakeClient{scores: map[string]float64{}}

	owner := models.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.Create(&owner).Error)
	viewer := models.User{Name: "Viewer", Email: "viewer@example.com"}
	require.NoError(t, db.Create(&viewer).Error)

	event := models.Event{OwnerID: owner.ID, Name: "Party", GuestLimit: 100, PhotoCapLimit: 10, Active: true}
	require.NoError(t, db.Create(&event).Error)

	profile := models.UserFaceProfile{
		UserID: viewer.ID, EventID: event.ID,
		PersistedFaceID: "p-viewer", ExternalFaceID: "enroll-face",
		EnrollmentMediaID: 999, Active: true,
	}
	require.NoError(t, db.Create(&profile).Error)

	for i := 1; i <= 3; i++ {
		media := models.EventMedia{
			EventID: event.ID, UploaderID: owner.ID, Kind: models.MediaKindImage,
			MimeType: "image/jpeg", FileSize: 100,
			StorageKey: fmt.Sprintf("event/%d/user/%d/photo/m%d.jpg", event.ID, owner.ID, i),
			CreatedAt:  int64(1000 + i), Active: true,
		}
		require.NoError(t, db.Create(&media).Error)
		det := models.FaceDetection{
			EventID: event.ID, MediaID: media.ID, SubjectUserID: owner.ID,
			ExternalFaceID: fmt.Sprintf("face-%d", i), Active: true,
		}
		require.NoError(t, db.Create(&det).Error)
	}
	// Second face on photo 2; matching it must not duplicate the media row.
	extra := models.FaceDetection{
		EventID: event.ID, MediaID: 2, SubjectUserID: owner.ID,
		ExternalFaceID: "face-2b", Active: true,
	}
	require.NoError(t, db.Create(&extra).Error)

	return &fixture{
		db: db, client: client,
		service: &Service{DB: db, Faces: client, DefaultThreshold: 0.75},
		event:   event, viewer: viewer,
	}
}

func TestListUserMediaNoProfile(t *testing.T) {
	f := setupFixture(t)
	other := models.User{Name: "Other", Email: "other@example.com"}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.service.ListUserMedia(context.Background(), f.event.ID, other.ID, 0, 1, 50)
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestListUserMediaThreshold(t *testing.T) {
	f := setupFixture(t)
	f.client.scores = map[string]float64{
		"face-1/p-viewer":  0.9,
		"face-2/p-viewer":  0.85,
		"face-2b/p-viewer": 0.2,
		"face-3/p-viewer":  0.3,
	}

	media, err := f.service.ListUserMedia(context.Background(), f.event.ID, f.viewer.ID, 0.8, 1, 50)
	require.NoError(t, err)
	require.Len(t, media, 2)
	// Newest first.
	assert.Equal(t, uint64(2), media[0].ID)
	assert.Equal(t, uint64(1), media[1].ID)

	// A lower threshold widens the result set to all three photos.
	media, err = f.service.ListUserMedia(context.Background(), f.event.ID, f.viewer.ID, 0.25, 1, 50)
	require.NoError(t, err)
	assert.Len(t, media, 3)
}

func TestListUserMediaDedupsMultiFacePhotos(t *testing.T) {
	f := setupFixture(t)
	f.client.scores = map[string]float64{
		"face-2/p-viewer":  0.9,
		"face-2b/p-viewer": 0.95,
	}

	media, err := f.service.ListUserMedia(context.Background(), f.event.ID, f.viewer.ID, 0.8, 1, 50)
	require.NoError(t, err)
	require.Len(t, media, 1)
	assert.Equal(t, uint64(2), media[0].ID)
}

func TestListUserMediaReusesCachedIdentification(t *testing.T) {
	f := setupFixture(t)
	viewerID := f.viewer.ID
	require.NoError(t, f.db.Model(&models.FaceDetection{}).
		Where("external_face_id = ?", "face-1").
		Updates(map[string]any{
			"is_identified":         true,
			"identified_user_id":    viewerID,
			"identified_confidence": 0.93,
		}).Error)
	f.client.scores = map[string]float64{} // every live compare scores zero

	media, err := f.service.ListUserMedia(context.Background(), f.event.ID, viewerID, 0.9, 1, 50)
	require.NoError(t, err)
	require.Len(t, media, 1)
	assert.Equal(t, uint64(1), media[0].ID)
	// The identified detection must not hit the face service again.
	assert.Equal(t, 3, f.client.compares)
}

func TestListUserMediaSkipsHiddenAndEnrollment(t *testing.T) {
	f := setupFixture(t)
	f.client.scores = map[string]float64{
		"face-1/p-viewer": 0.9,
		"face-2/p-viewer": 0.9,
		"face-3/p-viewer": 0.9,
	}
	// Hide photo 3.
	require.NoError(t, f.db.Model(&models.EventMedia{}).Where("id = ?", 3).
		Update("active", false).Error)

	media, err := f.service.ListUserMedia(context.Background(), f.event.ID, f.viewer.ID, 0.8, 1, 50)
	require.NoError(t, err)
	assert.Len(t, media, 2)
}

func TestListUserMediaPagination(t *testing.T) {
	f := setupFixture(t)
	f.client.scores = map[string]float64{
		"face-1/p-viewer": 0.9,
		"face-2/p-viewer": 0.9,
		"face-3/p-viewer": 0.9,
	}

	page1, err := f.service.ListUserMedia(context.Background(), f.event.ID, f.viewer.ID, 0.8, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	page2, err := f.service.ListUserMedia(context.Background(), f.event.ID, f.viewer.ID, 0.8, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
	assert.NotEqual(t, page1[1].ID, page2[0].ID)
}
