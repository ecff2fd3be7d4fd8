package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/application/ports"
)

const metadataSuffix = ".metadata.json"

// Storage implements ports.Storage on a local directory. Each bucket is a
// subdirectory of basePath.
type Storage struct {
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewStorage creates basePath when missing
func NewStorage(basePath string, logger ports.Logger, metrics ports.Metrics) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", basePath)

	return &Storage{
		basePath: basePath,
		logger:   logger.WithFields(map[string]interface{}{"storage": "filesystem"}),
		metrics:  metrics.WithTags(map[string]string{"storage": "filesystem"}),
	}, nil
}

// Put writes to a temporary file in the target directory and renames it into
// place, so a failed write never leaves a readable partial object.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()
	tags := map[string]string{"bucket": bucket}

	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "key"})
		return err
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.logger.Error("Failed to create bucket directory", "bucket", bucket, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "mkdir"})
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(objectPath), ".upload-*")
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "create"})
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: reader})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.logger.Error("Failed to write object", "bucket", bucket, "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "write"})
		return fmt.Errorf("failed to write data: %w", err)
	}

	if metadata.ContentLength == 0 {
		metadata.ContentLength = written
	}
	metadata.LastModified = time.Now().UTC()
	if err := s.saveMetadata(objectPath, metadata); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "metadata"})
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := os.Rename(tmpName, objectPath); err != nil {
		_ = os.Remove(objectPath + metadataSuffix)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "rename"})
		return fmt.Errorf("failed to commit object: %w", err)
	}
	committed = true

	duration := time.Since(start)
	s.logger.Info("Object stored", "bucket", bucket, "key", key, "bytes", written, "duration_ms", duration.Milliseconds())
	s.metrics.IncrementCounter("storage.put.success", tags)
	s.metrics.RecordHistogram("storage.put.bytes", float64(written), tags)
	s.metrics.RecordHistogram("storage.put.duration_ms", float64(duration.Milliseconds()), tags)

	return nil
}

func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(objectPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.metrics.IncrementCounter("storage.get.not_found", map[string]string{"bucket": bucket})
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ports.ErrObjectNotFound)
		}
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"bucket": bucket})
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.IncrementCounter("storage.get.success", map[string]string{"bucket": bucket})
	return file, nil
}

// Delete removes the object and its metadata; a missing object is not an error
func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := os.Remove(objectPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to delete object", "bucket", bucket, "key", key, "error", err)
		s.metrics.IncrementCounter("storage.delete.errors", map[string]string{"bucket": bucket})
		return fmt.Errorf("failed to delete object: %w", err)
	}
	_ = os.Remove(objectPath + metadataSuffix)

	s.logger.Info("Object deleted", "bucket", bucket, "key", key)
	s.metrics.IncrementCounter("storage.delete.success", map[string]string{"bucket": bucket})
	return nil
}

func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(objectPath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
}

// List walks the bucket directory; metadata sidecars and temp files are skipped
func (s *Storage) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	bucketPath := filepath.Join(s.basePath, bucket)

	var objects []ports.ObjectInfo
	err := filepath.WalkDir(bucketPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, metadataSuffix) || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(bucketPath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ports.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		s.metrics.IncrementCounter("storage.list.errors", map[string]string{"bucket": bucket})
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	s.metrics.IncrementCounter("storage.list.success", map[string]string{"bucket": bucket})
	return objects, nil
}

// objectPath resolves bucket/key under basePath and rejects keys escaping it
func (s *Storage) objectPath(bucket, key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	root := filepath.Join(s.basePath, bucket)
	p := filepath.Join(root, filepath.FromSlash(key))
	if key == "" || !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

func (s *Storage) saveMetadata(objectPath string, metadata ports.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(objectPath+metadataSuffix, data, 0o644)
}

// ctxReader stops a copy once the context is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
