package models

// FaceDetection is one face found in one media item. Rows are written by the
// detection dispatcher (upsert on media_id + external_face_id) and updated by
// retrain when an identification is assigned.
type FaceDetection struct {
	ID        uint64 `gorm:"primaryKey"`
	CreatedAt int64
	UpdatedAt int64
	EventID   uint64     `gorm:"not null;index"`
	Event     Event      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	MediaID   uint64     `gorm:"not null;index:uniq_media_face,unique,priority:1"`
	Media     EventMedia `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	// SubjectUserID is the uploader's context, not the matched identity.
	SubjectUserID   uint64 `gorm:"not null"`
	ExternalFaceID  string `gorm:"type:varchar(100);index:uniq_media_face,unique,priority:2"`
	PersistedFaceID string `gorm:"type:varchar(100)"`
	RectTop         int    `gorm:"not null"`
	RectLeft        int    `gorm:"not null"`
	RectWidth       int    `gorm:"not null"`
	RectHeight      int    `gorm:"not null"`
	Attributes      []byte `gorm:"type:blob"`
	Confidence      float64
	IsIdentified    bool    `gorm:"not null;default:0"`
	IdentifiedUserID *uint64 `gorm:"index"`
	// IdentifiedConfidence caches the similarity score computed when the
	// identification was assigned, so the matcher can skip a compare call for
	// the identified user.
	IdentifiedConfidence float64
	Active               bool `gorm:"not null;default:1"`
}
