package processing

import (
	"bytes"

	"server/models"
	"server/storage"
	"server/utils"

	"gorm.io/gorm"
)

const thumbSize = 1280

// CreateThumbFor downloads a committed image, renders a JPEG thumbnail next
// to the original and records the dimensions on the media row.
func CreateThumbFor(db *gorm.DB, store storage.API, media *models.EventMedia) error {
	if media.Kind != models.MediaKindImage || media.ThumbSize > 0 {
		return nil
	}
	var original, thumb bytes.Buffer
	if err := store.Load(media.StorageKey, &original); err != nil {
		return err
	}
	info, err := utils.CreateThumb(thumbSize, &original, &thumb)
	if err != nil {
		return err
	}
	if err := store.Save(storage.ThumbKey(media.StorageKey), "image/jpeg", &thumb); err != nil {
		return err
	}
	return db.Model(media).Updates(map[string]any{
		"thumb_size":   info.ThumbSize,
		"thumb_width":  info.NewX,
		"thumb_height": info.NewY,
	}).Error
}
