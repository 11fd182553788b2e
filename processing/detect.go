package processing

import (
	"context"

	"server/faces"
	"server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DetectMedia invokes the face capability for one media item and persists the
// result. Safe to re-run: rows are upserted on (media_id, external_face_id)
// and faces missing from the latest run are deactivated, so repeated dispatch
// or retrain supersedes instead of duplicating.
func DetectMedia(ctx context.Context, db *gorm.DB, client faces.Client, media *models.EventMedia) (int, error) {
	found, err := client.Detect(ctx, media.PublicURL)
	if err != nil {
		return 0, err
	}
	seen := make([]string, 0, len(found))
	for _, face := range found {
		detection := models.FaceDetection{
			EventID:        media.EventID,
			MediaID:        media.ID,
			SubjectUserID:  media.UploaderID,
			ExternalFaceID: face.FaceID,
			RectTop:        face.Rectangle.Top,
			RectLeft:       face.Rectangle.Left,
			RectWidth:      face.Rectangle.Width,
			RectHeight:     face.Rectangle.Height,
			Attributes:     []byte(face.Attributes),
			Confidence:     face.Confidence,
			Active:         true,
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "media_id"}, {Name: "external_face_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rect_top", "rect_left", "rect_width", "rect_height",
				"attributes", "confidence", "active", "updated_at",
			}),
		}).Create(&detection).Error
		if err != nil {
			return 0, err
		}
		seen = append(seen, face.FaceID)
	}
	// Faces the service no longer reports are superseded, not deleted, so an
	// identification history survives until the media row itself goes away.
	stale := db.Model(&models.FaceDetection{}).Where("media_id = ?", media.ID)
	if len(seen) > 0 {
		stale = stale.Where("external_face_id NOT IN ?", seen)
	}
	if err := stale.Update("active", false).Error; err != nil {
		return 0, err
	}
	return len(seen), nil
}
