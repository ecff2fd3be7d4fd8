package ledger

import (
	"context"
	"time"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// UploadMedia uploads every item under prefix, in order. When an upload fails
// the items already uploaded are deleted again and BlobUploadFailure is
// returned; no locator survives a failed call.
func (m *Manager) UploadMedia(ctx context.Context, prefix string, media []entity.Media, contentTypes []string) ([]entity.Locator, error) {
	locators := make([]entity.Locator, 0, len(media))
	for i, item := range media {
		hint := ports.UploadHint{Prefix: prefix, Filename: item.Filename}
		if i < len(contentTypes) {
			hint.ContentType = contentTypes[i]
		}

		loc, err := m.blobs.Upload(ctx, item.Data, hint)
		if err != nil {
			m.logger.Error("media upload failed",
				"error", err,
				"filename", item.Filename,
				"position", i+1,
				"rolled_back", len(locators))
			m.DiscardMedia(ctx, locators)
			return nil, NewError(CodeBlobUploadFailure, err, "failed to upload media item %d (%s)", i+1, item.Filename)
		}
		locators = append(locators, loc)
	}
	return locators, nil
}

// cleanupTimeout bounds the deletes of one DiscardMedia call
const cleanupTimeout = 30 * time.Second

// DiscardMedia deletes blobs best-effort and returns the locators that could
// not be deleted. Failures are logged, never returned as errors. Cancelling
// ctx does not stop the deletes; cleanupTimeout does.
func (m *Manager) DiscardMedia(ctx context.Context, locators []entity.Locator) []entity.Locator {
	if len(locators) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var failed []entity.Locator
	for _, loc := range locators {
		if err := m.blobs.Delete(ctx, loc); err != nil {
			m.logger.Error("media cleanup failed",
				"code", CodeBlobCleanupFailure,
				"error", err,
				"name", loc.Name)
			m.metrics.IncrementCounter("ledger.blob_cleanup.failure", nil)
			failed = append(failed, loc)
		}
	}
	return failed
}
