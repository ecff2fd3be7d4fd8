// Package gcs implements ports.Storage on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

type client struct {
	gcs     *storage.Client
	bucket  string
	logger  ports.Logger
	metrics ports.Metrics
}

// New opens a GCS client using the credentials file when one is configured,
// application default credentials otherwise.
func New(ctx context.Context, cfg *config.StorageConfig, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	var opts []option.ClientOption
	if cfg.GCS.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
	}

	gcs, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS client initialized", "bucket", cfg.BucketOrPath)

	return &client{
		gcs:     gcs,
		bucket:  cfg.BucketOrPath,
		logger:  logger.WithFields(map[string]interface{}{"storage": "gcs"}),
		metrics: metrics.WithTags(map[string]string{"storage": "gcs"}),
	}, nil
}

// Put streams through an object writer; GCS publishes the object only when
// the writer closes cleanly.
func (c *client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()
	bucket = c.bucketOr(bucket)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := c.gcs.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = metadata.ContentType
	w.CacheControl = metadata.CacheControl
	w.Metadata = metadata.UserMetadata

	size, err := io.Copy(w, reader)
	if err != nil {
		cancel()
		_ = w.Close()
		c.metrics.IncrementCounter("gcs.put.errors", map[string]string{"error_type": "write"})
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		c.logger.Error("Failed to put object", "error", err, "bucket", bucket, "key", key)
		c.metrics.IncrementCounter("gcs.put.errors", map[string]string{"error_type": "close"})
		return fmt.Errorf("failed to put object: %w", err)
	}

	duration := time.Since(start)
	c.logger.Info("Object stored", "bucket", bucket, "key", key, "size_bytes", size, "duration_ms", duration.Milliseconds())
	c.metrics.IncrementCounter("gcs.put.success", nil)
	c.metrics.RecordHistogram("gcs.put.duration_ms", float64(duration.Milliseconds()), nil)
	return nil
}

func (c *client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	bucket = c.bucketOr(bucket)

	r, err := c.gcs.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ports.ErrObjectNotFound)
		}
		c.metrics.IncrementCounter("gcs.get.errors", nil)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return r, nil
}

// Delete treats a missing object as already deleted
func (c *client) Delete(ctx context.Context, bucket, key string) error {
	bucket = c.bucketOr(bucket)

	err := c.gcs.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		c.logger.Error("Failed to delete object", "error", err, "bucket", bucket, "key", key)
		c.metrics.IncrementCounter("gcs.delete.errors", nil)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	c.metrics.IncrementCounter("gcs.delete.success", nil)
	return nil
}

func (c *client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.gcs.Bucket(c.bucketOr(bucket)).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func (c *client) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	it := c.gcs.Bucket(c.bucketOr(bucket)).Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []ports.ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			c.metrics.IncrementCounter("gcs.list.errors", nil)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		objects = append(objects, ports.ObjectInfo{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated})
	}
	return objects, nil
}

func (c *client) bucketOr(bucket string) string {
	if bucket == "" {
		return c.bucket
	}
	return bucket
}
