package config

import (
	"os"
	"strconv"
	"strings"
)

var (
	TLS_DOMAINS  = "" // e.g. "example.com,example2.com"
	BIND_ADDRESS = "0.0.0.0:8080"
	MYSQL_DSN    = "" // MySQL will be used if this is set
	SQLITE_FILE  = "" // SQLite will be used if MYSQL_DSN is not configured and this is set
	DEBUG_MODE   = true
	SESSION_KEY  = "change me in production"

	// Object storage. If S3_BUCKET is set, S3 is used; otherwise DISK_STORAGE_DIR
	// must point to a writable directory and bytes are kept locally (dev setups).
	S3_BUCKET        = ""
	S3_REGION        = "us-east-1"
	S3_ENDPOINT      = "" // leave empty for AWS, set for MinIO and friends
	S3_ACCESS_KEY    = ""
	S3_SECRET_KEY    = ""
	S3_PUBLIC_URL    = "" // base URL the uploaded objects are readable from
	DISK_STORAGE_DIR = ""
	PUBLIC_BASE_URL  = "http://localhost:8080" // used by the disk backend to build URLs

	// Face capability service
	FACE_API_URL         = "http://localhost:5000"
	FACE_API_KEY         = ""
	FACE_MATCH_THRESHOLD = 0.75 // similarity at or above which a detection counts as identified
	DETECT_WORKERS       = 4
	DETECT_RETRIES       = 3

	// Guest invite links
	GUEST_TOKEN_SECRET = "change me too"
	GUEST_TOKEN_HOURS  = 72
)

func init() {
	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("SESSION_KEY", &SESSION_KEY)
	readEnvString("S3_BUCKET", &S3_BUCKET)
	readEnvString("S3_REGION", &S3_REGION)
	readEnvString("S3_ENDPOINT", &S3_ENDPOINT)
	readEnvString("S3_ACCESS_KEY", &S3_ACCESS_KEY)
	readEnvString("S3_SECRET_KEY", &S3_SECRET_KEY)
	readEnvString("S3_PUBLIC_URL", &S3_PUBLIC_URL)
	readEnvString("DISK_STORAGE_DIR", &DISK_STORAGE_DIR)
	readEnvString("PUBLIC_BASE_URL", &PUBLIC_BASE_URL)
	readEnvString("FACE_API_URL", &FACE_API_URL)
	readEnvString("FACE_API_KEY", &FACE_API_KEY)
	readEnvFloat("FACE_MATCH_THRESHOLD", &FACE_MATCH_THRESHOLD)
	readEnvInt("DETECT_WORKERS", &DETECT_WORKERS)
	readEnvInt("DETECT_RETRIES", &DETECT_RETRIES)
	readEnvString("GUEST_TOKEN_SECRET", &GUEST_TOKEN_SECRET)
	readEnvInt("GUEST_TOKEN_HOURS", &GUEST_TOKEN_HOURS)
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvFloat(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*value = f
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = f
}
