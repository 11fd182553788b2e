package handlers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"server/storage"

	"github.com/gin-gonic/gin"
)

// WebHandler backs the disk storage backend's local upload and download
// routes. With S3 configured these routes are never registered; clients talk
// to the bucket directly.
type WebHandler struct {
	Disk *storage.DiskStorage
}

func NewWebHandler(disk *storage.DiskStorage) *WebHandler {
	return &WebHandler{Disk: disk}
}

// Upload accepts a PUT against a signed local upload URL. The signature was
// issued by NewUploadURL; no session is required, same as a presigned S3 PUT.
func (h *WebHandler) Upload(c *gin.Context) {
	key := c.Query("key")
	sig := c.Query("sig")
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if key == "" || sig == "" || err != nil {
		c.JSON(http.StatusBadRequest, Response{"missing upload credential"})
		return
	}
	if _, err := storage.ParseKey(key); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if !h.Disk.VerifyUploadSig(key, exp, sig) {
		c.JSON(http.StatusForbidden, Response{"invalid or expired upload credential"})
		return
	}
	if err := h.Disk.Save(key, c.ContentType(), c.Request.Body); err != nil {
		c.JSON(http.StatusInternalServerError, Response{"could not save file"})
		return
	}
	c.JSON(http.StatusOK, Response{})
}

// File serves a stored object. Keys are namespaced and never contain "..";
// ParseKey rejects anything outside the media namespace.
func (h *WebHandler) File(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if _, err := storage.ParseKey(key); err != nil {
		c.JSON(http.StatusNotFound, Response{"not found"})
		return
	}
	mimeType := mime.TypeByExtension(filepath.Ext(key))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Type", mimeType)
	c.Header("Cache-Control", "private, max-age=86400")
	c.Status(http.StatusOK)
	if err := h.Disk.Load(key, c.Writer); err != nil {
		c.Status(http.StatusNotFound)
	}
}
