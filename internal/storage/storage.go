// Package storage keeps ticket attachments on the local filesystem or in an
// S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
)

// AttachmentPrefix namespaces every stored attachment key.
const AttachmentPrefix = "ticket_attachments/"

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// Download is either a redirect target or a readable body.
type Download struct {
	RedirectURL string
	Body        io.ReadCloser
}

// Store persists attachment bytes under opaque keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Fetch(ctx context.Context, key string) (*Download, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Uploader sniffs, names and stores attachments.
type Uploader struct {
	store    Store
	maxBytes int64
}

// NewUploader wraps store with a size limit; maxBytes <= 0 disables it.
func NewUploader(store Store, maxBytes int64) *Uploader {
	return &Uploader{store: store, maxBytes: maxBytes}
}

// Save stores body and returns the attachment reference for the ticket row.
func (u *Uploader) Save(ctx context.Context, fileName string, body io.Reader, size int64) (*domain.Attachment, error) {
	if u.maxBytes > 0 && size > u.maxBytes {
		return nil, ErrTooLarge
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	head = head[:n]
	detected := mimetype.Detect(head)

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = detected.Extension()
	}
	key := AttachmentPrefix + uuid.NewString() + ext

	if err := u.store.Put(ctx, key, detected.String(), io.MultiReader(bytes.NewReader(head), body), size); err != nil {
		return nil, err
	}
	return &domain.Attachment{
		StorageKey: key,
		FileName:   path.Base(filepath.ToSlash(fileName)),
		MimeType:   detected.String(),
		SizeBytes:  size,
	}, nil
}

// Fetch resolves a stored attachment for download.
func (u *Uploader) Fetch(ctx context.Context, key string) (*Download, error) {
	return u.store.Fetch(ctx, key)
}

// Discard removes a stored attachment, used when the ticket row fails to persist.
func (u *Uploader) Discard(ctx context.Context, key string) error {
	return u.store.Delete(ctx, key)
}
