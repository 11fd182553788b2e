package matching

import (
	"context"
	"errors"
	"log"

	"server/faces"
	"server/models"

	"gorm.io/gorm"
)

const (
	MinThreshold = 0.1
	MaxThreshold = 1.0
)

// ErrNoProfile means the caller has not enrolled a face for the event yet;
// enrollment is a precondition for "my photos".
var ErrNoProfile = errors.New("no face profile enrolled for this event")

// Service resolves "photos containing me" queries. Results are recomputed per
// request because the threshold is caller-tunable and never persisted.
type Service struct {
	DB               *gorm.DB
	Faces            faces.Client
	DefaultThreshold float64
}

// ClampThreshold folds a requested threshold into the service's valid range,
// substituting the default when the caller sent none (zero).
func (s *Service) ClampThreshold(threshold float64) float64 {
	if threshold == 0 {
		threshold = s.DefaultThreshold
	}
	if threshold < MinThreshold {
		return MinThreshold
	}
	if threshold > MaxThreshold {
		return MaxThreshold
	}
	return threshold
}

// Score returns the similarity between a detection and an enrolled profile.
// When the detection is already identified as the profile's owner the stored
// confidence is reused instead of a round-trip to the face service.
func (s *Service) Score(ctx context.Context, det *models.FaceDetection, profile *models.UserFaceProfile) (float64, error) {
	if det.IsIdentified && det.IdentifiedUserID != nil &&
		*det.IdentifiedUserID == profile.UserID && det.IdentifiedConfidence > 0 {
		return det.IdentifiedConfidence, nil
	}
	return s.Faces.Compare(ctx, det.ExternalFaceID, profile.PersistedFaceID)
}

// ListUserMedia returns the caller's matched gallery media for an event:
// active, non-enrollment media containing at least one active detection whose
// similarity to the caller's enrolled profile is at or above the threshold,
// deduplicated, newest first, paginated.
func (s *Service) ListUserMedia(ctx context.Context, eventID, userID uint64, threshold float64, page, limit int) ([]models.EventMedia, error) {
	threshold = s.ClampThreshold(threshold)

	profile := models.UserFaceProfile{}
	err := s.DB.Where("event_id = ? AND user_id = ? AND active = ?", eventID, userID, true).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, err
	}

	var detections []models.FaceDetection
	err = s.DB.Model(&models.FaceDetection{}).
		Joins("JOIN event_media ON event_media.id = face_detections.media_id").
		Where("face_detections.event_id = ? AND face_detections.active = ?", eventID, true).
		Where("event_media.is_face_enrollment = ? AND event_media.active = ?", false, true).
		Find(&detections).Error
	if err != nil {
		return nil, err
	}

	mediaIDs := map[uint64]bool{}
	for i := range detections {
		if mediaIDs[detections[i].MediaID] {
			continue // media already matched through another face
		}
		score, err := s.Score(ctx, &detections[i], &profile)
		if err != nil {
			// A single failed comparison hides one candidate, not the query.
			log.Printf("matching: compare failed for detection %d: %v", detections[i].ID, err)
			continue
		}
		if score >= threshold {
			mediaIDs[detections[i].MediaID] = true
		}
	}
	if len(mediaIDs) == 0 {
		return []models.EventMedia{}, nil
	}

	ids := make([]uint64, 0, len(mediaIDs))
	for id := range mediaIDs {
		ids = append(ids, id)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var media []models.EventMedia
	err = s.DB.Where("id IN ?", ids).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&media).Error
	return media, err
}
