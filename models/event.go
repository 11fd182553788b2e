package models

import (
	"errors"
	"fmt"
)

type Event struct {
	ID        uint64 `gorm:"primaryKey"`
	CreatedAt int64
	UpdatedAt int64
	OwnerID   uint64 `gorm:"not null;index"`
	Owner     User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Name      string `gorm:"type:varchar(300)"`
	// GuestLimit is one of the enumerated tiers unless IsCustomTier is set,
	// in which case the two Custom* overrides apply instead.
	GuestLimit          int  `gorm:"not null"`
	PhotoCapLimit       int  `gorm:"not null"`
	IsCustomTier        bool `gorm:"not null;default:0"`
	CustomGuestLimit    *int
	CustomPhotoCapLimit *int
	Active              bool `gorm:"not null;default:1"`
}

// tierCaps pairs each enumerated guest limit with its per-user photo cap.
var tierCaps = map[int]int{
	10:   5,
	100:  10,
	250:  15,
	500:  20,
	800:  25,
	1000: 25,
}

const (
	maxEnumeratedGuestLimit = 1000
	maxEnumeratedPhotoCap   = 25
)

var (
	ErrUnknownTier  = errors.New("guest limit is not one of the supported tiers")
	ErrTierMismatch = errors.New("photo cap does not match the guest limit tier")
)

// ValidateTierConfig checks the guest-limit/photo-cap pairing on event create
// and save. Non-custom events must use one of the enumerated pairs; custom
// events must override both limits beyond the largest enumerated values.
func ValidateTierConfig(e *Event) error {
	if e.IsCustomTier {
		if e.CustomGuestLimit == nil || e.CustomPhotoCapLimit == nil {
			return errors.New("custom tier requires both customGuestLimit and customPhotoCapLimit")
		}
		if *e.CustomGuestLimit <= maxEnumeratedGuestLimit {
			return fmt.Errorf("customGuestLimit must be greater than %d", maxEnumeratedGuestLimit)
		}
		if *e.CustomPhotoCapLimit <= maxEnumeratedPhotoCap {
			return fmt.Errorf("customPhotoCapLimit must be greater than %d", maxEnumeratedPhotoCap)
		}
		return nil
	}
	cap, ok := tierCaps[e.GuestLimit]
	if !ok {
		return ErrUnknownTier
	}
	if e.PhotoCapLimit != cap {
		return ErrTierMismatch
	}
	return nil
}
