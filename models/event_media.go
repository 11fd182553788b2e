package models

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MediaKindOther = 0
	MediaKindImage = 1
	MediaKindVideo = 2

	MinFileSize = 1
	MaxFileSize = 100 << 20 // 100 MiB
)

type EventMedia struct {
	ID         uint64 `gorm:"primaryKey"`
	CreatedAt  int64  `gorm:"index:event_media_created,priority:2"`
	UpdatedAt  int64
	EventID    uint64 `gorm:"not null;index:event_media_created,priority:1"`
	Event      Event  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UploaderID uint64 `gorm:"not null;index"`
	Uploader   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Kind       uint8  `gorm:"not null"`
	Name       string `gorm:"type:varchar(300)"`
	MimeType   string `gorm:"type:varchar(50)"`
	FileSize   int64  `gorm:"not null"`
	StorageKey string `gorm:"type:varchar(500);index:uniq_storage_key,unique"`
	PublicURL  string `gorm:"type:varchar(2000)"`
	// Thumbnail fields are filled in by the background thumb task.
	ThumbSize        int64
	ThumbWidth       uint16
	ThumbHeight      uint16
	IsFaceEnrollment bool `gorm:"not null;default:0"`
	Active           bool `gorm:"not null;default:1"`
}

// MediaKindFor maps a MIME type to the stored media kind.
func MediaKindFor(mimeType string) uint8 {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaKindImage
	case strings.HasPrefix(mimeType, "video/"):
		return MediaKindVideo
	}
	return MediaKindOther
}

// ValidateFileSize enforces the accepted byte range for committed media.
func ValidateFileSize(size int64) error {
	if size < MinFileSize || size > MaxFileSize {
		return fmt.Errorf("fileSize must be between %d and %d bytes", int64(MinFileSize), int64(MaxFileSize))
	}
	return nil
}

var ErrUnsupportedMime = errors.New("this file type is not allowed")

// ValidateMimeType restricts uploads to the media types the pipeline handles.
func ValidateMimeType(mimeType string) error {
	if MediaKindFor(mimeType) == MediaKindOther {
		return ErrUnsupportedMime
	}
	return nil
}

// HumanSize renders a file size the way the UI displays it.
func HumanSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	}
	return fmt.Sprintf("%d B", size)
}
