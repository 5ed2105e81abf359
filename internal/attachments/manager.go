package attachments

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
	"github.com/incidentdesk/incidentdesk/internal/storage"
)

const (
	MaxFileSize  = 10 << 20 // 10 MiB per file
	MaxFileCount = 10       // per incident
)

// Manager validates incident media, writes it to the object store and
// issues signed retrieval URLs for stored references.
type Manager struct {
	store storage.ObjectStore
}

func NewManager(store storage.ObjectStore) *Manager {
	return &Manager{store: store}
}

// ValidateBatch enforces the boundary-layer limits before any per-file
// processing. A violation fails the whole upload batch, unlike per-file
// storage failures which are skipped during Store.
func ValidateBatch(files []*multipart.FileHeader) error {
	if len(files) > MaxFileCount {
		return apperrors.Wrap(apperrors.ErrPayloadTooLarge, "A maximum of %d attachments is allowed per incident", MaxFileCount)
	}

	for _, file := range files {
		if file.Size > MaxFileSize {
			return apperrors.Wrap(apperrors.ErrPayloadTooLarge, "Attachment %s exceeds the 10 MiB limit", file.Filename)
		}

		contentType := file.Header.Get("Content-Type")
		if !AllowedMediaType(contentType) {
			return apperrors.Wrap(apperrors.ErrUnsupportedMedia, "Attachment %s has unsupported type %s", file.Filename, contentType)
		}
	}

	return nil
}

// AllowedMediaType accepts only declared image and video content.
func AllowedMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

// Store writes one file and returns its opaque storage reference. The key
// embeds the owning incident id and an upload timestamp so it is unique and
// traceable; an existing key is never overwritten.
func (m *Manager) Store(ctx context.Context, incidentID uint, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()

	if err != nil {
		return "", fmt.Errorf("failed to open attachment %s: %w", file.Filename, err)
	}

	defer src.Close()

	key := ObjectKey(incidentID, file.Filename, time.Now())

	contentType := file.Header.Get("Content-Type")

	if err := m.store.Put(ctx, key, src, file.Size, contentType); err != nil {
		return "", apperrors.Wrap(apperrors.ErrUpstream, "failed to store attachment %s: %v", file.Filename, err)
	}

	return key, nil
}

// Sign issues a time-limited retrieval URL for a stored reference. Signing
// happens on read so the validity window starts at request time.
func (m *Manager) Sign(ctx context.Context, reference string) (string, error) {
	return m.store.SignedURL(ctx, reference)
}

// Remove deletes the blob behind a stored reference.
func (m *Manager) Remove(ctx context.Context, reference string) error {
	return m.store.Remove(ctx, reference)
}

// ObjectKey is {incidentID}/{uploadTimestamp}-{originalFileName}.
func ObjectKey(incidentID uint, filename string, uploadedAt time.Time) string {
	return fmt.Sprintf("%d/%d-%s", incidentID, uploadedAt.UnixNano(), filepath.Base(filename))
}
