package storage

import (
	"strings"
	"testing"
)

func TestNewMediaKeyParseKeyRoundTrip(t *testing.T) {
	key := NewMediaKey(12, 7, PurposePhoto, "IMG_1234.JPG")
	if !strings.HasPrefix(key, "event/12/user/7/photo/") {
		t.Fatalf("unexpected key shape %q", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("extension not lowercased in %q", key)
	}
	info, err := ParseKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if info.EventID != 12 || info.UserID != 7 || info.Purpose != PurposePhoto {
		t.Errorf("ParseKey = %+v", info)
	}

	key2 := NewMediaKey(12, 7, PurposePhoto, "IMG_1234.JPG")
	if key == key2 {
		t.Error("keys for the same inputs must be unique")
	}
}

func TestParseKeyRejectsForeignShapes(t *testing.T) {
	bad := []string{
		"",
		"event/12/user/7/photo",                 // missing file part
		"event/12/user/7/photo/a/b",             // too deep
		"asset/12/user/7/photo/x.jpg",           // wrong namespace
		"event/x/user/7/photo/x.jpg",            // non-numeric event
		"event/12/user/x/photo/x.jpg",           // non-numeric user
		"event/12/user/7/avatar/x.jpg",          // unknown purpose
		"event/12/owner/7/photo/x.jpg",          // wrong user marker
		"../../../../etc/passwd",                // traversal
	}
	for _, key := range bad {
		if _, err := ParseKey(key); err == nil {
			t.Errorf("ParseKey(%q) accepted", key)
		}
	}
}

func TestParseKeyEnrollPurpose(t *testing.T) {
	info, err := ParseKey("event/3/user/9/enroll/abc.png")
	if err != nil {
		t.Fatal(err)
	}
	if info.Purpose != PurposeEnroll {
		t.Errorf("Purpose = %q", info.Purpose)
	}
}

func TestThumbKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"event/1/user/2/photo/abc.jpg", "event/1/user/2/photo/abc_thumb.jpg"},
		{"event/1/user/2/photo/abc.png", "event/1/user/2/photo/abc_thumb.jpg"},
	}
	for _, tt := range tests {
		if got := ThumbKey(tt.key); got != tt.want {
			t.Errorf("ThumbKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
