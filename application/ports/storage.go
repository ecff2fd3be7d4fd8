package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in a bucket
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata describes a stored object
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	CacheControl  string
	LastModified  time.Time
	ETag          string
	UserMetadata  map[string]string
}

// ObjectInfo is a listing entry
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage abstracts the object store backing media blobs
// (local filesystem, S3 or Google Cloud Storage).
type Storage interface {
	// Put stores an object under bucket/key. A failed Put must not leave
	// a partial object readable under the key.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get retrieves an object; ErrObjectNotFound when the key is missing
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// List returns the objects in a bucket under an optional prefix
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
