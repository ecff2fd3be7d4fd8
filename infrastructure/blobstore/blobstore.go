// Package blobstore turns an object storage adapter into the media blob
// store used by the ledger: it names objects, builds their public URLs and
// makes deletion idempotent.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// Store implements ports.BlobStore over a ports.Storage
type Store struct {
	storage ports.Storage
	bucket  string
	baseURL string
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates a blob store. bucket may be empty to use the adapter default.
func New(storage ports.Storage, bucket, publicBaseURL string, logger ports.Logger, metrics ports.Metrics) *Store {
	return &Store{
		storage: storage,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
		metrics: metrics,
	}
}

// Upload stores data under <prefix>/<uuid><ext>
func (s *Store) Upload(ctx context.Context, data []byte, hint ports.UploadHint) (entity.Locator, error) {
	start := time.Now()

	key := Key(hint.Prefix, hint.Filename)
	contentType := hint.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	err := s.storage.Put(ctx, s.bucket, key, bytes.NewReader(data), ports.ObjectMetadata{
		ContentType:   contentType,
		ContentLength: int64(len(data)),
	})
	if err != nil {
		s.logger.Error("Blob upload failed", "key", key, "error", err)
		s.metrics.IncrementCounter("blob.upload.errors", map[string]string{"prefix": hint.Prefix})
		return entity.Locator{}, fmt.Errorf("upload %s: %w", key, err)
	}

	s.metrics.IncrementCounter("blob.upload.success", map[string]string{"prefix": hint.Prefix})
	s.metrics.RecordHistogram("blob.upload.bytes", float64(len(data)), map[string]string{"prefix": hint.Prefix})
	s.metrics.RecordHistogram("blob.upload.duration_ms", float64(time.Since(start).Milliseconds()), map[string]string{"prefix": hint.Prefix})

	return entity.Locator{Name: key, URL: s.URL(key)}, nil
}

// Delete removes the blob named by the locator; a missing blob is success
func (s *Store) Delete(ctx context.Context, locator entity.Locator) error {
	if locator.Name == "" {
		return nil
	}

	err := s.storage.Delete(ctx, s.bucket, locator.Name)
	if err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
		s.logger.Error("Blob delete failed", "key", locator.Name, "error", err)
		s.metrics.IncrementCounter("blob.delete.errors", nil)
		return fmt.Errorf("delete %s: %w", locator.Name, err)
	}

	s.metrics.IncrementCounter("blob.delete.success", nil)
	return nil
}

// URL returns the public address of key
func (s *Store) URL(key string) string {
	if s.baseURL == "" {
		return "/" + key
	}
	return s.baseURL + "/" + key
}

// Key builds an object key; only the lowercased extension of filename is kept
func Key(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 || strings.ContainsAny(ext, " /?#%") {
		ext = ""
	}
	name := uuid.NewString() + ext
	if prefix == "" {
		return name
	}
	return strings.Trim(prefix, "/") + "/" + name
}
