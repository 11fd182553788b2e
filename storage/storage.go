package storage

import (
	"errors"
	"io"
)

// API is the object-storage boundary the rest of the server talks to. Bytes
// never flow through the API process on upload: clients receive a short-lived
// write credential and PUT directly.
type API interface {
	// NewUploadURL issues a presigned write credential for the key, valid for
	// about an hour, plus the public URL the object will be readable from.
	NewUploadURL(key, mimeType string) (uploadURL, publicURL string, err error)
	// Exists reports whether an object has actually been written for the key.
	Exists(key string) bool
	// KeyForURL maps a public URL back to its storage key, or fails when the
	// URL is not anchored to this backend's namespace.
	KeyForURL(url string) (string, error)

	Save(key, mimeType string, reader io.Reader) error
	Load(key string, writer io.Writer) error
	Delete(key string) error
}

var ErrForeignURL = errors.New("storage: URL is not anchored to the configured storage")

// Config selects and parameterises a backend. Exactly one of Bucket (S3) or
// BaseDir (local disk) must be set.
type Config struct {
	// S3
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS
	AccessKey string
	SecretKey string
	PublicURL string

	// Disk
	BaseDir string
	BaseURL string // public base URL of this server
	Secret  string // signs local upload credentials
}

func New(cfg Config) (API, error) {
	if cfg.Bucket != "" {
		return NewS3Storage(cfg)
	}
	if cfg.BaseDir != "" {
		return NewDiskStorage(cfg), nil
	}
	return nil, errors.New("storage: neither S3 bucket nor disk directory configured")
}
