package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// MaxThumbnailSize is the largest accepted upload.
const MaxThumbnailSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ObjectStore stores an object and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// ThumbnailUpload is one uploaded image file.
type ThumbnailUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ThumbnailResult describes a stored thumbnail and the updated item.
type ThumbnailResult struct {
	URL  string       `json:"url"`
	Path string       `json:"path"`
	Item *models.Item `json:"item"`
}

// ThumbnailService validates images, stores them and points the item at them.
type ThumbnailService struct {
	store  ObjectStore
	items  *ItemService
	now    func() time.Time
	logger *zap.Logger
}

// NewThumbnailService creates a ThumbnailService.
func NewThumbnailService(store ObjectStore, items *ItemService, logger *zap.Logger) *ThumbnailService {
	return &ThumbnailService{
		store:  store,
		items:  items,
		now:    time.Now,
		logger: logger.Named("thumbnails"),
	}
}

// ValidateThumbnail checks type and size; it never touches the network.
func ValidateThumbnail(up *ThumbnailUpload) error {
	switch {
	case len(up.Data) == 0:
		return apperrors.NewValidationError("file", "No file provided")
	case !allowedImageTypes[strings.ToLower(up.ContentType)]:
		return apperrors.NewValidationError("file",
			"Invalid file type. Allowed types: image/jpeg, image/jpg, image/png, image/webp, image/gif")
	case len(up.Data) > MaxThumbnailSize:
		return apperrors.NewValidationError("file", "File size exceeds 5MB limit")
	}
	return nil
}

// thumbnailExt is the lower-cased extension of the file name, "jpg" when absent.
func thumbnailExt(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "jpg"
		}
	}
	if ext == "" {
		return "jpg"
	}
	return ext
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}

// ThumbnailKey builds thumbnails/{projects|portfolios}/{id}/{unixMillis}-{rand7}.{ext}.
func ThumbnailKey(t models.ItemType, id models.ID, fileName string, now time.Time) string {
	return fmt.Sprintf("thumbnails/%s/%s/%s-%s.%s",
		t.Plural(), id, strconv.FormatInt(now.UnixMilli(), 10), randomBase36(7), thumbnailExt(fileName))
}

// Upload stores the image and updates the item's thumbnail_url.
func (s *ThumbnailService) Upload(ctx context.Context, t models.ItemType, id models.ID, up *ThumbnailUpload) (*ThumbnailResult, error) {
	if err := ValidateThumbnail(up); err != nil {
		return nil, err
	}
	if err := s.items.CheckOwner(ctx, t, id); err != nil {
		return nil, err
	}

	key := ThumbnailKey(t, id, up.FileName, s.now())
	url, err := s.store.Put(ctx, key, strings.ToLower(up.ContentType), up.Data)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Thumbnail uploaded",
		zap.String("type", string(t)),
		zap.String("item_id", id.String()),
		zap.String("path", key),
		zap.Int("size", len(up.Data)))

	item, err := s.items.SetThumbnail(ctx, t, id, url)
	if err != nil {
		return nil, fmt.Errorf("thumbnail stored at %s but item update failed: %w", key, err)
	}
	return &ThumbnailResult{URL: url, Path: key, Item: item}, nil
}
