package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"server/models"
	"server/processing"
	"server/storage"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map/v2"
	"gorm.io/gorm"
)

type MediaHandler struct {
	DB    *gorm.DB
	Store storage.API
	Queue *processing.Queue
	// locks serialises quota check-and-commit per (event, uploader) pair.
	// Row locks are not portable across the supported DB drivers, so the
	// race between concurrent commits is closed in-process instead.
	locks cmap.ConcurrentMap[string, *sync.Mutex]
}

func NewMediaHandler(db *gorm.DB, store storage.API, queue *processing.Queue) *MediaHandler {
	return &MediaHandler{
		DB:    db,
		Store: store,
		Queue: queue,
		locks: cmap.New[*sync.Mutex](),
	}
}

func (h *MediaHandler) uploadLock(eventID, userID uint64) *sync.Mutex {
	key := fmt.Sprintf("%d/%d", eventID, userID)
	mu, _ := h.locks.Get(key)
	if mu == nil {
		h.locks.SetIfAbsent(key, &sync.Mutex{})
		mu, _ = h.locks.Get(key)
	}
	return mu
}

type UploadURLRequest struct {
	EventID  uint64 `json:"event_id" binding:"required"`
	FileName string `json:"file_name" binding:"required,max=300"`
	MimeType string `json:"mime_type" binding:"required,max=50"`
}

type UploadURLResponse struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Used       int64  `json:"used"`
	MaxUploads int    `json:"max_uploads"`
	Role       string `json:"role"`
}

// checkedEvent loads the event and verifies the caller may touch it.
func (h *MediaHandler) checkedEvent(c *gin.Context, user *models.User, eventID uint64) (*models.Event, bool) {
	event, ok := loadEvent(c, h.DB, eventID)
	if !ok {
		return nil, false
	}
	if !event.Active {
		c.JSON(http.StatusForbidden, Response{"this event is no longer active"})
		return nil, false
	}
	if !user.CanAccessEvent(event) {
		c.JSON(http.StatusForbidden, Response{"access denied"})
		return nil, false
	}
	return event, true
}

func quotaError(q models.Quota) Response {
	return Response{fmt.Sprintf("Maximum %d photos allowed for %ss", q.MaxUploads, q.Role)}
}

// NewUploadURL declares an upload intent. The quota is checked here so the
// client fails fast, but the authoritative check happens again at commit.
func (h *MediaHandler) NewUploadURL(c *gin.Context, user *models.User) {
	var r UploadURLRequest
	if !bindJSON(c, &r) {
		return
	}
	if err := models.ValidateMimeType(r.MimeType); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	event, ok := h.checkedEvent(c, user, r.EventID)
	if !ok {
		return
	}
	quota, err := models.EffectiveQuota(event, event.OwnerID == user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
		return
	}
	used, err := models.CountUploads(h.DB, event.ID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	if used >= int64(quota.MaxUploads) {
		c.JSON(http.StatusForbidden, quotaError(quota))
		return
	}
	key := storage.NewMediaKey(event.ID, user.ID, storage.PurposePhoto, r.FileName)
	uploadURL, publicURL, err := h.Store.NewUploadURL(key, r.MimeType)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{"could not create upload URL"})
		return
	}
	c.JSON(http.StatusOK, UploadURLResponse{
		StorageKey: key,
		UploadURL:  uploadURL,
		PublicURL:  publicURL,
		Used:       used,
		MaxUploads: quota.MaxUploads,
		Role:       quota.Role,
	})
}

type ConfirmItem struct {
	URL        string `json:"url" binding:"required,max=2000"`
	FileName   string `json:"file_name" binding:"required,max=300"`
	FileSize   int64  `json:"file_size" binding:"required"`
	MimeType   string `json:"mime_type" binding:"required,max=50"`
	StorageKey string `json:"storage_key" binding:"required,max=500"`
}

type ConfirmRequest struct {
	EventID uint64        `json:"event_id" binding:"required"`
	Media   []ConfirmItem `json:"media" binding:"required,min=1,dive"`
}

type MediaInfo struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	FileSize  int64  `json:"file_size"`
	SizeLabel string `json:"size_label"`
	PublicURL string `json:"public_url"`
	Uploader  uint64 `json:"uploader_id"`
	CreatedAt int64  `json:"created_at"`
	Active    bool   `json:"active"`
}

func mediaInfo(m *models.EventMedia) MediaInfo {
	return MediaInfo{
		ID:        m.ID,
		Name:      m.Name,
		MimeType:  m.MimeType,
		FileSize:  m.FileSize,
		SizeLabel: models.HumanSize(m.FileSize),
		PublicURL: m.PublicURL,
		Uploader:  m.UploaderID,
		CreatedAt: m.CreatedAt,
		Active:    m.Active,
	}
}

type ConfirmResponse struct {
	Media      []MediaInfo `json:"media"`
	Used       int64       `json:"used"`
	MaxUploads int         `json:"max_uploads"`
	Role       string      `json:"role"`
}

// validateConfirmItem checks one commit tuple against the storage backend and
// the caller's namespace. No DB writes happen until every item passes.
func (h *MediaHandler) validateConfirmItem(item *ConfirmItem, eventID, userID uint64, purpose string) error {
	if err := models.ValidateFileSize(item.FileSize); err != nil {
		return fmt.Errorf("%s: %w", item.FileName, err)
	}
	if err := models.ValidateMimeType(item.MimeType); err != nil {
		return fmt.Errorf("%s: %w", item.FileName, err)
	}
	key, err := h.Store.KeyForURL(item.URL)
	if err != nil {
		return fmt.Errorf("%s: %w", item.FileName, err)
	}
	if key != item.StorageKey {
		return fmt.Errorf("%s: URL does not match the declared storage key", item.FileName)
	}
	info, err := storage.ParseKey(key)
	if err != nil {
		return fmt.Errorf("%s: %w", item.FileName, err)
	}
	if info.EventID != eventID || info.UserID != userID || info.Purpose != purpose {
		return fmt.Errorf("%s: storage key belongs to a different namespace", item.FileName)
	}
	if !h.Store.Exists(key) {
		return fmt.Errorf("%s: file was not uploaded", item.FileName)
	}
	return nil
}

// Confirm commits previously uploaded files as event media. The batch is
// all-or-nothing: every item is validated first, then the quota re-check and
// the inserts run in one transaction under the per-uploader lock.
func (h *MediaHandler) Confirm(c *gin.Context, user *models.User) {
	var r ConfirmRequest
	if !bindJSON(c, &r) {
		return
	}
	event, ok := h.checkedEvent(c, user, r.EventID)
	if !ok {
		return
	}
	for i := range r.Media {
		if err := h.validateConfirmItem(&r.Media[i], event.ID, user.ID, storage.PurposePhoto); err != nil {
			c.JSON(http.StatusBadRequest, Response{err.Error()})
			return
		}
	}
	quota, err := models.EffectiveQuota(event, event.OwnerID == user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
		return
	}

	mu := h.uploadLock(event.ID, user.ID)
	mu.Lock()
	defer mu.Unlock()

	var created []models.EventMedia
	var used int64
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		used, err = models.CountUploads(tx, event.ID, user.ID)
		if err != nil {
			return err
		}
		if used+int64(len(r.Media)) > int64(quota.MaxUploads) {
			return errQuotaExceeded
		}
		for _, item := range r.Media {
			media := models.EventMedia{
				EventID:    event.ID,
				UploaderID: user.ID,
				Kind:       models.MediaKindFor(item.MimeType),
				Name:       item.FileName,
				MimeType:   item.MimeType,
				FileSize:   item.FileSize,
				StorageKey: item.StorageKey,
				PublicURL:  item.URL,
			}
			if err := tx.Create(&media).Error; err != nil {
				return err
			}
			created = append(created, media)
		}
		used += int64(len(r.Media))
		return nil
	})
	if err == errQuotaExceeded {
		c.JSON(http.StatusForbidden, quotaError(quota))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}

	// Post-commit only: a rolled-back batch must never reach the pipeline.
	result := make([]MediaInfo, 0, len(created))
	for i := range created {
		if created[i].Kind == models.MediaKindImage {
			h.Queue.EnqueueDetect(created[i].ID)
			h.Queue.EnqueueThumb(created[i].ID)
		}
		result = append(result, mediaInfo(&created[i]))
	}
	c.JSON(http.StatusOK, ConfirmResponse{
		Media:      result,
		Used:       used,
		MaxUploads: quota.MaxUploads,
		Role:       quota.Role,
	})
}

var errQuotaExceeded = fmt.Errorf("quota exceeded")

type MediaListRequest struct {
	EventID uint64 `form:"event_id" binding:"required"`
	Page    int    `form:"page"`
	Limit   int    `form:"limit"`
}

// List is the event gallery: committed, active, non-enrollment media, newest
// first.
func (h *MediaHandler) List(c *gin.Context, user *models.User) {
	var r MediaListRequest
	if !bindQuery(c, &r) {
		return
	}
	event, ok := h.checkedEvent(c, user, r.EventID)
	if !ok {
		return
	}
	if r.Limit <= 0 || r.Limit > 100 {
		r.Limit = 50
	}
	if r.Page < 1 {
		r.Page = 1
	}
	var media []models.EventMedia
	err := h.DB.
		Where("event_id = ? AND is_face_enrollment = ? AND active = ?", event.ID, false, true).
		Order("created_at DESC, id DESC").
		Offset((r.Page - 1) * r.Limit).
		Limit(r.Limit).
		Find(&media).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	result := make([]MediaInfo, 0, len(media))
	for i := range media {
		result = append(result, mediaInfo(&media[i]))
	}
	c.JSON(http.StatusOK, result)
}

type MediaActiveRequest struct {
	MediaID uint64 `json:"media_id" binding:"required"`
	Active  *bool  `json:"active" binding:"required"`
}

// SetActive toggles moderation visibility. Hiding a photo keeps its row but
// frees its quota slot; only the event owner or an admin may do this.
func (h *MediaHandler) SetActive(c *gin.Context, user *models.User) {
	var r MediaActiveRequest
	if !bindJSON(c, &r) {
		return
	}
	media := models.EventMedia{}
	if h.DB.First(&media, r.MediaID).Error != nil {
		c.JSON(http.StatusNotFound, Response{"media not found"})
		return
	}
	event, ok := loadEvent(c, h.DB, media.EventID)
	if !ok {
		return
	}
	if event.OwnerID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, Response{"only the event owner can moderate media"})
		return
	}
	if err := h.DB.Model(&media).Update("active", *r.Active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	media.Active = *r.Active
	c.JSON(http.StatusOK, mediaInfo(&media))
}
