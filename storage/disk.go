package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DiskStorage keeps objects in a local directory. Meant for development and
// tests: the "presigned" write credential is a local PUT route carrying an
// HMAC over the key and expiry, mirroring what S3 gives us.
type DiskStorage struct {
	BasePath  string
	baseURL   string
	secret    []byte
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(cfg Config) *DiskStorage {
	return &DiskStorage{
		BasePath: cfg.BaseDir,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		secret:   []byte(cfg.Secret),
		dirs:     make(map[string]bool, 10),
	}
}

func (s *DiskStorage) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyUploadSig checks a local write credential. Used by the /w/upload
// route that stands in for direct-to-S3 PUTs.
func (s *DiskStorage) VerifyUploadSig(key string, exp int64, sig string) bool {
	if exp < time.Now().Unix() {
		return false
	}
	return hmac.Equal([]byte(s.sign(key, exp)), []byte(sig))
}

func (s *DiskStorage) NewUploadURL(key, mimeType string) (string, string, error) {
	exp := time.Now().Add(presignUploadFor).Unix()
	uploadURL := s.baseURL + "/w/upload?key=" + url.QueryEscape(key) +
		"&exp=" + strconv.FormatInt(exp, 10) + "&sig=" + s.sign(key, exp)
	return uploadURL, s.baseURL + "/w/file/" + key, nil
}

func (s *DiskStorage) Exists(key string) bool {
	fi, err := os.Stat(s.getFullPath(key))
	return err == nil && fi.Size() > 0
}

func (s *DiskStorage) KeyForURL(u string) (string, error) {
	prefix := s.baseURL + "/w/file/"
	if !strings.HasPrefix(u, prefix) {
		return "", ErrForeignURL
	}
	return strings.TrimPrefix(u, prefix), nil
}

func (s *DiskStorage) getFullPath(key string) string {
	return s.BasePath + "/" + key
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	s.dirs[dir] = true
	return os.MkdirAll(dir, 0777)
}

func (s *DiskStorage) Save(key, mimeType string, reader io.Reader) error {
	fileName := s.getFullPath(key)
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(file, reader)
	file.Close()
	return err
}

func (s *DiskStorage) Load(key string, writer io.Writer) error {
	file, err := os.Open(s.getFullPath(key))
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, file)
	file.Close()
	return err
}

func (s *DiskStorage) Delete(key string) error {
	return os.Remove(s.getFullPath(key))
}
