package models

import "gorm.io/gorm"

const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Quota is the effective upload ceiling for one caller on one event.
type Quota struct {
	MaxUploads int    `json:"max_uploads"`
	Role       string `json:"role"`
	IsCreator  bool   `json:"is_creator"`
}

// EffectiveQuota derives the caller's upload ceiling from the event's tier
// configuration. Hosts and guests currently share the same cap; the role is
// still carried through so the two can diverge later without an API change.
// The function is pure and fails closed on inconsistent configurations.
func EffectiveQuota(e *Event, isCreator bool) (Quota, error) {
	if err := ValidateTierConfig(e); err != nil {
		return Quota{}, err
	}
	q := Quota{IsCreator: isCreator, Role: RoleGuest}
	if isCreator {
		q.Role = RoleHost
	}
	if e.IsCustomTier {
		q.MaxUploads = *e.CustomPhotoCapLimit
	} else {
		q.MaxUploads = tierCaps[e.GuestLimit]
	}
	return q, nil
}

// CountUploads returns the caller's current number of active, non-enrollment
// media rows for the event. Always re-derived from the store; quota counts
// are never cached in-process.
func CountUploads(db *gorm.DB, eventID, userID uint64) (int64, error) {
	var count int64
	err := db.Model(&EventMedia{}).
		Where("event_id = ? AND uploader_id = ? AND is_face_enrollment = ? AND active = ?",
			eventID, userID, false, true).
		Count(&count).Error
	return count, err
}
