package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Upload purposes. The purpose is baked into the key so ownership and intent
// can be validated from the key shape alone.
const (
	PurposePhoto  = "photo"
	PurposeEnroll = "enroll"
)

// KeyInfo is the parsed shape of a media storage key.
type KeyInfo struct {
	EventID uint64
	UserID  uint64
	Purpose string
}

// NewMediaKey builds a unique storage key namespaced by event, user and
// purpose, e.g. "event/12/user/7/photo/1f2e....jpg".
func NewMediaKey(eventID, userID uint64, purpose, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("event/%d/user/%d/%s/%s%s", eventID, userID, purpose, uuid.New().String(), ext)
}

// ParseKey validates the namespace shape of a storage key and extracts its
// owner coordinates. Commit requests carrying keys outside the caller's
// namespace are rejected with the returned error.
func ParseKey(key string) (KeyInfo, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 6 || parts[0] != "event" || parts[2] != "user" {
		return KeyInfo{}, fmt.Errorf("malformed storage key %q", key)
	}
	eventID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("malformed event id in storage key %q", key)
	}
	userID, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("malformed user id in storage key %q", key)
	}
	purpose := parts[4]
	if purpose != PurposePhoto && purpose != PurposeEnroll {
		return KeyInfo{}, fmt.Errorf("unknown purpose in storage key %q", key)
	}
	return KeyInfo{EventID: eventID, UserID: userID, Purpose: purpose}, nil
}

// ThumbKey derives the thumbnail key from an original's key. Thumbs are
// always JPEG.
func ThumbKey(key string) string {
	ext := filepath.Ext(key)
	return key[:len(key)-len(ext)] + "_thumb.jpg"
}
