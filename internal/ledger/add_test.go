package ledger_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledger/application/ports"
	"ledger/application/ports/mocks"
	"ledger/domain/entity"
	"ledger/internal/ledger"
	"ledger/internal/testutil"
)

func TestAddProgress_MovesPointerAndStoresMedia(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	report := testutil.SeedReport(t, h.repos, "")
	tech := testutil.SeedUser(t, h.repos, "Bo", entity.RoleTechnician)

	first := h.add(t, report.ID, 1, entity.StatusIncoming)
	assert.Equal(t, &first, h.pointer(t, report.ID))

	h.clock.Set(testutil.Now.Add(2 * time.Minute))
	external := "Acme Lifts"
	res, err := h.manager.AddProgress(ctx, ledger.AddProgressInput{
		ReportID:           report.ID,
		Status:             entity.StatusInProgress,
		Description:        "Replacing ballast",
		TechnicianID:       &tech.ID,
		ExternalTechnician: &external,
		Media:              []entity.Media{media("before.png", pngData), media("after.JPG", jpegData)},
	})
	require.NoError(t, err)

	assert.Equal(t, &res.ProgressID, h.pointer(t, report.ID))
	require.Len(t, res.Media, 2)
	assert.True(t, strings.HasPrefix(res.Media[0].Name, "progress/"))
	assert.True(t, strings.HasSuffix(res.Media[1].Name, ".jpg"))
	assert.Equal(t, []string{res.Media[0].URL, res.Media[1].URL}, res.MediaURLs())
	assert.Equal(t, 2, h.blobCount(t))

	entries := h.entries(t, report.ID)
	require.Len(t, entries, 2)
	latest := entries[1]
	assert.Equal(t, res.ProgressID, latest.ID)
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, res.Media, latest.Media)
	assert.Equal(t, "Acme Lifts", *latest.ExternalTechnician)
	assert.True(t, latest.CreatedAt.Equal(testutil.Now.Add(2*time.Minute)))

	stored, err := h.repos.Reports().Get(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TechnicianID)
	assert.Equal(t, tech.ID, *stored.TechnicianID)
	assert.True(t, stored.UpdatedAt.Equal(testutil.Now.Add(2*time.Minute)))

	assert.Equal(t, int64(2), h.env.Metrics.CounterTotal("ledger.add_progress.success"))
}

func TestAddProgress_SameInstantOrdersBySeq(t *testing.T) {
	h := newHarness(t)
	report := testutil.SeedReport(t, h.repos, "")

	h.add(t, report.ID, 5, entity.StatusIncoming)
	second := h.add(t, report.ID, 5, entity.StatusPending)

	assert.Equal(t, &second, h.pointer(t, report.ID))
}

func TestAddProgress_RejectsInvalidInputWithoutSideEffects(t *testing.T) {
	long := strings.Repeat("x", 1001)

	tests := []struct {
		name string
		in   ledger.AddProgressInput
	}{
		{name: "missing report", in: ledger.AddProgressInput{Status: entity.StatusPending, Description: "d"}},
		{name: "unknown status", in: ledger.AddProgressInput{ReportID: "r", Status: "Fixed", Description: "d"}},
		{name: "empty description", in: ledger.AddProgressInput{ReportID: "r", Status: entity.StatusPending}},
		{name: "description too long", in: ledger.AddProgressInput{ReportID: "r", Status: entity.StatusPending, Description: long}},
		{
			name: "empty media item",
			in: ledger.AddProgressInput{ReportID: "r", Status: entity.StatusPending, Description: "d",
				Media: []entity.Media{media("a.png", nil)}},
		},
		{
			name: "not an image or video",
			in: ledger.AddProgressInput{ReportID: "r", Status: entity.StatusPending, Description: "d",
				Media: []entity.Media{media("notes.txt", []byte("plain text notes"))}},
		},
		{
			name: "too many media items",
			in: ledger.AddProgressInput{ReportID: "r", Status: entity.StatusPending, Description: "d",
				Media: []entity.Media{media("1.png", pngData), media("2.png", pngData), media("3.png", pngData), media("4.png", pngData)}},
		},
		{
			name: "media too large",
			in: ledger.AddProgressInput{ReportID: "r", Status: entity.StatusPending, Description: "d",
				Media: []entity.Media{media("big.png", append(append([]byte{}, pngData...), make([]byte, testLimits.MaxMediaBytes)...))}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := &mocks.MockBlobStore{}
			h := newHarness(t, withBlobs(func(ports.BlobStore) ports.BlobStore { return blobs }))

			_, err := h.manager.AddProgress(context.Background(), tt.in)
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
			blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAddProgress_InvalidReferences(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	report := testutil.SeedReport(t, h.repos, "")
	admin := testutil.SeedUser(t, h.repos, "Al", entity.RoleAdmin)
	missing := "no-such-user"

	tests := []struct {
		name   string
		report string
		tech   *string
	}{
		{name: "unknown report", report: "no-such-report"},
		{name: "unknown technician", report: report.ID, tech: &missing},
		{name: "user is not a technician", report: report.ID, tech: &admin.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.manager.AddProgress(ctx, ledger.AddProgressInput{
				ReportID:     tt.report,
				Status:       entity.StatusPending,
				Description:  "d",
				TechnicianID: tt.tech,
				Media:        []entity.Media{media("a.png", pngData)},
			})
			assert.ErrorIs(t, err, ledger.ErrInvalidReference)
			assert.Equal(t, 0, h.blobCount(t))
		})
	}

	assert.Empty(t, h.entries(t, report.ID))
	assert.Nil(t, h.pointer(t, report.ID))
}

func TestAddProgress_SecondUploadFailsLeavesNoTrace(t *testing.T) {
	flaky := &flakyBlobs{failUpload: 2}
	h := newHarness(t, withBlobs(func(b ports.BlobStore) ports.BlobStore {
		flaky.BlobStore = b
		return flaky
	}))
	report := testutil.SeedReport(t, h.repos, "")
	existing := h.add(t, report.ID, 1, entity.StatusIncoming)
	flaky.uploads = 0

	_, err := h.manager.AddProgress(context.Background(), ledger.AddProgressInput{
		ReportID:    report.ID,
		Status:      entity.StatusPending,
		Description: "photos attached",
		Media:       []entity.Media{media("1.png", pngData), media("2.png", pngData)},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrBlobUploadFailure)
	assert.Len(t, h.entries(t, report.ID), 1)
	assert.Equal(t, &existing, h.pointer(t, report.ID))
	assert.Equal(t, 0, h.blobCount(t))
}

func TestAddProgress_CompensatesUploadsWithMockStore(t *testing.T) {
	blobs := &mocks.MockBlobStore{}
	h := newHarness(t, withBlobs(func(ports.BlobStore) ports.BlobStore { return blobs }))
	report := testutil.SeedReport(t, h.repos, "")

	first := entity.Locator{Name: "progress/1.png", URL: "http://files.test/uploads/progress/1.png"}
	blobs.On("Upload", mock.Anything, pngData, mock.MatchedBy(func(hint ports.UploadHint) bool {
		return hint.Filename == "1.png" && hint.Prefix == "progress" && hint.ContentType == "image/png"
	})).Return(first, nil).Once()
	blobs.On("Upload", mock.Anything, jpegData, mock.Anything).Return(entity.Locator{}, errOutage).Once()
	blobs.On("Delete", mock.Anything, first).Return(nil).Once()

	_, err := h.manager.AddProgress(context.Background(), ledger.AddProgressInput{
		ReportID:    report.ID,
		Status:      entity.StatusPending,
		Description: "d",
		Media:       []entity.Media{media("1.png", pngData), media("2.jpg", jpegData)},
	})

	assert.ErrorIs(t, err, ledger.ErrBlobUploadFailure)
	assert.ErrorIs(t, err, errOutage)
	assert.Empty(t, h.entries(t, report.ID))
	blobs.AssertExpectations(t)
}

func TestAddProgress_TransactionFailureDiscardsUploads(t *testing.T) {
	h := newHarness(t, withRepos(func(r ports.Repositories) ports.Repositories {
		return &lockFailingRepos{Repositories: r, reportID: ""}
	}))
	report := testutil.SeedReport(t, h.repos, "")
	h.repos.(*lockFailingRepos).reportID = report.ID

	_, err := h.manager.AddProgress(context.Background(), ledger.AddProgressInput{
		ReportID:    report.ID,
		Status:      entity.StatusPending,
		Description: "d",
		Media:       []entity.Media{media("1.png", pngData)},
	})

	assert.ErrorIs(t, err, ledger.ErrTransactionFailure)
	assert.Equal(t, 0, h.blobCount(t))
	assert.Empty(t, h.entries(t, report.ID))
	assert.Equal(t, int64(1), h.env.Metrics.CounterTotal("ledger.add_progress.failure"))
}

func TestAddProgress_PublishesEvent(t *testing.T) {
	h := newHarness(t)
	report := testutil.SeedReport(t, h.repos, "")

	queue := &mocks.MockQueue{}
	manager, err := ledger.NewManager(h.env.DB, h.repos, h.blobs, testLimits, h.env.Obs,
		ledger.WithClock(h.clock.Now), ledger.WithEvents(queue, "ledger-events"))
	require.NoError(t, err)

	queue.On("Publish", mock.Anything, mock.MatchedBy(func(msg *ports.QueueMessage) bool {
		event, ok := msg.Body.(*ledger.Event)
		return ok && msg.Target == "ledger-events" &&
			event.Type == ledger.EventProgressAdded &&
			event.ReportID == report.ID &&
			event.Status == entity.StatusIncoming
	})).Return(nil).Once()

	_, err = manager.AddProgress(context.Background(), ledger.AddProgressInput{
		ReportID: report.ID, Status: entity.StatusIncoming, Description: "d",
	})
	require.NoError(t, err)
	queue.AssertExpectations(t)
}

func TestAddProgress_PublishFailureDoesNotFailCall(t *testing.T) {
	h := newHarness(t)
	report := testutil.SeedReport(t, h.repos, "")

	queue := &mocks.MockQueue{}
	queue.On("Publish", mock.Anything, mock.Anything).Return(errOutage)
	manager, err := ledger.NewManager(h.env.DB, h.repos, h.blobs, testLimits, h.env.Obs,
		ledger.WithClock(h.clock.Now), ledger.WithEvents(queue, "ledger-events"))
	require.NoError(t, err)

	res, err := manager.AddProgress(context.Background(), ledger.AddProgressInput{
		ReportID: report.ID, Status: entity.StatusIncoming, Description: "d",
	})
	require.NoError(t, err)
	assert.Equal(t, &res.ProgressID, h.pointer(t, report.ID))
	assert.Equal(t, int64(1), h.env.Metrics.CounterTotal("ledger.event.publish_failed"))
}

func TestAddProgress_ClockBehindNewestEntryStillMovesPointer(t *testing.T) {
	h := newHarness(t)
	report := testutil.SeedReport(t, h.repos, "")

	first := h.add(t, report.ID, 10, entity.StatusIncoming)
	second := h.add(t, report.ID, 5, entity.StatusPending)

	assert.Equal(t, &second, h.pointer(t, report.ID))
	entries := h.entries(t, report.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].ID)
	assert.Equal(t, second, entries[1].ID)
	assert.True(t, entries[1].CreatedAt.Equal(entries[0].CreatedAt), "got %s", entries[1].CreatedAt)
	assert.Equal(t, &second, ledger.Reindex(entries, nil))

	// deleting the newest entry falls back to the older one
	_, err := h.manager.DeleteProgress(context.Background(), ledger.Selector{IDs: []string{second}})
	require.NoError(t, err)
	assert.Equal(t, &first, h.pointer(t, report.ID))
}

func TestAddProgress_CancelledDuringUploadStillDiscardsMedia(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	blobs := &cancellingBlobs{cancel: cancel, cancelAt: 2, fail: true}
	h := newHarness(t, withBlobs(func(b ports.BlobStore) ports.BlobStore {
		blobs.BlobStore = b
		return blobs
	}))
	report := testutil.SeedReport(t, h.repos, "")

	_, err := h.manager.AddProgress(ctx, ledger.AddProgressInput{
		ReportID:    report.ID,
		Status:      entity.StatusPending,
		Description: "client went away",
		Media:       []entity.Media{media("1.png", pngData), media("2.png", pngData)},
	})

	assert.ErrorIs(t, err, ledger.ErrBlobUploadFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.blobCount(t))
	assert.Empty(t, h.entries(t, report.ID))
	assert.Equal(t, int64(0), h.env.Metrics.CounterTotal("ledger.blob_cleanup.failure"))
}

func TestAddProgress_CancelledBeforeCommitStillDiscardsMedia(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	blobs := &cancellingBlobs{cancel: cancel, cancelAt: 2}
	h := newHarness(t, withBlobs(func(b ports.BlobStore) ports.BlobStore {
		blobs.BlobStore = b
		return blobs
	}))
	report := testutil.SeedReport(t, h.repos, "")

	_, err := h.manager.AddProgress(ctx, ledger.AddProgressInput{
		ReportID:    report.ID,
		Status:      entity.StatusPending,
		Description: "client went away",
		Media:       []entity.Media{media("1.png", pngData), media("2.png", pngData)},
	})

	assert.ErrorIs(t, err, ledger.ErrTransactionFailure)
	assert.Equal(t, 0, h.blobCount(t))
	assert.Empty(t, h.entries(t, report.ID))
	assert.Nil(t, h.pointer(t, report.ID))
}
