package ports

import (
	"context"

	"ledger/domain/entity"
)

// UploadHint tells the blob store where and how to place an upload
type UploadHint struct {
	// Prefix groups blobs by owner kind, e.g. "progress" or "reports"
	Prefix string
	// Filename is the client-supplied name; only its extension is kept
	Filename string
	// ContentType is stored with the object
	ContentType string
}

// BlobStore uploads and deletes media blobs. It has no transaction
// semantics: every call is an independent remote operation.
type BlobStore interface {
	// Upload stores data and returns its locator. Upload is all-or-nothing.
	Upload(ctx context.Context, data []byte, hint UploadHint) (entity.Locator, error)

	// Delete removes the blob. Deleting a missing blob succeeds.
	Delete(ctx context.Context, locator entity.Locator) error
}
