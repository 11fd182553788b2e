package models

// UserFaceProfile is a user's enrolled reference face for one event. The
// unique index on (user_id, event_id) is what guarantees at most one active
// profile per pair; concurrent enrollments race on the constraint, not on an
// application-level check.
type UserFaceProfile struct {
	ID        uint64 `gorm:"primaryKey"`
	CreatedAt int64
	UpdatedAt int64
	UserID    uint64 `gorm:"not null;index:uniq_user_event,unique,priority:1"`
	User      User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	EventID   uint64 `gorm:"not null;index:uniq_user_event,unique,priority:2"`
	Event     Event  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	// PersistedFaceID is the globally unique handle the face service keeps
	// for comparisons; ExternalFaceID is the transient detection id from the
	// enrollment image.
	PersistedFaceID string `gorm:"type:varchar(100);index:uniq_persisted_face,unique"`
	ExternalFaceID  string `gorm:"type:varchar(100)"`
	// The enrollment media row is referenced, never owned: deleting the
	// profile leaves the media row behind.
	EnrollmentMediaID uint64
	EnrollmentMedia   EventMedia
	RectTop           int        `gorm:"not null"`
	RectLeft          int        `gorm:"not null"`
	RectWidth         int        `gorm:"not null"`
	RectHeight        int        `gorm:"not null"`
	Attributes        []byte     `gorm:"type:blob"`
	Confidence        float64
	Active            bool `gorm:"not null;default:1"`
}
