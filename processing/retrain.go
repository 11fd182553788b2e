package processing

import (
	"context"
	"log"

	"server/faces"
	"server/models"

	"gorm.io/gorm"
)

// RetrainStats summarises one retrain pass for the admin response.
type RetrainStats struct {
	MediaScanned int `json:"media_scanned"`
	MediaFailed  int `json:"media_failed"`
	FacesFound   int `json:"faces_found"`
	Identified   int `json:"identified"`
}

// Retrain re-runs detection across all of an event's active gallery images
// and re-evaluates every active detection against every active enrollment
// profile. Expensive and explicitly triggered; running it twice in a row
// without enrollment changes converges to the same assignments.
func Retrain(ctx context.Context, db *gorm.DB, client faces.Client, eventID uint64, threshold float64) (RetrainStats, error) {
	stats := RetrainStats{}

	var media []models.EventMedia
	err := db.Where("event_id = ? AND kind = ? AND is_face_enrollment = ? AND active = ?",
		eventID, models.MediaKindImage, false, true).
		Order("id").Find(&media).Error
	if err != nil {
		return stats, err
	}
	for i := range media {
		found, err := DetectMedia(ctx, db, client, &media[i])
		if err != nil {
			// One bad image must not sink the whole pass.
			stats.MediaFailed++
			log.Printf("retrain: detection failed for media %d: %v", media[i].ID, err)
			continue
		}
		stats.MediaScanned++
		stats.FacesFound += found
	}

	var profiles []models.UserFaceProfile
	if err := db.Where("event_id = ? AND active = ?", eventID, true).Find(&profiles).Error; err != nil {
		return stats, err
	}
	var detections []models.FaceDetection
	err = db.Model(&models.FaceDetection{}).
		Joins("JOIN event_media ON event_media.id = face_detections.media_id").
		Where("face_detections.event_id = ? AND face_detections.active = ?", eventID, true).
		Where("event_media.is_face_enrollment = ? AND event_media.active = ?", false, true).
		Find(&detections).Error
	if err != nil {
		return stats, err
	}

	for i := range detections {
		det := &detections[i]
		bestScore := 0.0
		var bestProfile *models.UserFaceProfile
		for j := range profiles {
			score, err := client.Compare(ctx, det.ExternalFaceID, profiles[j].PersistedFaceID)
			if err != nil {
				log.Printf("retrain: compare failed for detection %d profile %d: %v", det.ID, profiles[j].ID, err)
				continue
			}
			if score > bestScore {
				bestScore = score
				bestProfile = &profiles[j]
			}
		}
		updates := map[string]any{
			"is_identified":         false,
			"identified_user_id":    nil,
			"identified_confidence": 0.0,
		}
		if bestProfile != nil && bestScore >= threshold {
			updates["is_identified"] = true
			updates["identified_user_id"] = bestProfile.UserID
			updates["identified_confidence"] = bestScore
			stats.Identified++
		}
		if err := db.Model(det).Updates(updates).Error; err != nil {
			return stats, err
		}
	}
	return stats, nil
}
