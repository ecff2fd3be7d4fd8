package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/internal/ledger"
	"ledger/internal/testutil"
)

func TestDeleteProgress_Scenarios(t *testing.T) {
	statuses := []entity.ProgressStatus{
		entity.StatusIncoming, entity.StatusPending, entity.StatusInProgress,
		entity.StatusAwaitingReplacement, entity.StatusDone,
	}

	tests := []struct {
		name        string
		entries     int
		deleteIdx   []int
		wantPointer int // index into entries, -1 for none
	}{
		{name: "delete latest moves pointer back", entries: 3, deleteIdx: []int{2}, wantPointer: 1},
		{name: "delete all clears pointer", entries: 3, deleteIdx: []int{0, 1, 2}, wantPointer: -1},
		{name: "delete interior keeps pointer", entries: 5, deleteIdx: []int{1, 3}, wantPointer: 4},
		{name: "delete oldest keeps pointer", entries: 3, deleteIdx: []int{0}, wantPointer: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			report := testutil.SeedReport(t, h.repos, "")

			ids := make([]string, tt.entries)
			for i := range ids {
				ids[i] = h.add(t, report.ID, i+1, statuses[i])
			}
			require.Equal(t, &ids[tt.entries-1], h.pointer(t, report.ID))

			var doomed []string
			for _, i := range tt.deleteIdx {
				doomed = append(doomed, ids[i])
			}
			res, err := h.manager.DeleteProgress(context.Background(), ledger.Selector{IDs: doomed})
			require.NoError(t, err)

			assert.Equal(t, len(doomed), res.Deleted)
			require.Len(t, res.Reports, 1)
			assert.Equal(t, report.ID, res.Reports[0].ReportID)

			if tt.wantPointer < 0 {
				assert.Nil(t, h.pointer(t, report.ID))
				assert.Nil(t, res.Reports[0].CurrentProgressID)
			} else {
				assert.Equal(t, &ids[tt.wantPointer], h.pointer(t, report.ID))
				assert.Equal(t, &ids[tt.wantPointer], res.Reports[0].CurrentProgressID)
			}
			assert.Len(t, h.entries(t, report.ID), tt.entries-len(doomed))
		})
	}
}

func TestDeleteProgress_RemovesBlobsAfterCommit(t *testing.T) {
	h := newHarness(t)
	report := testutil.SeedReport(t, h.repos, "")

	keep := h.add(t, report.ID, 1, entity.StatusIncoming, media("a.png", pngData))
	drop := h.add(t, report.ID, 2, entity.StatusDone, media("b.png", pngData), media("c.jpg", jpegData))
	require.Equal(t, 3, h.blobCount(t))

	res, err := h.manager.DeleteProgress(context.Background(), ledger.Selector{IDs: []string{drop, "unknown-id"}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, res.Reports[0].CleanupFailures)
	assert.Equal(t, 1, h.blobCount(t))
	assert.Equal(t, &keep, h.pointer(t, report.ID))
}

func TestDeleteProgress_OnlyUnknownIDs(t *testing.T) {
	h := newHarness(t)

	res, err := h.manager.DeleteProgress(context.Background(), ledger.Selector{IDs: []string{"nope"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deleted)
	assert.Empty(t, res.Reports)
}

func TestDeleteProgress_ByReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target := testutil.SeedReport(t, h.repos, "")
	other := testutil.SeedReport(t, h.repos, "")

	h.add(t, target.ID, 1, entity.StatusIncoming)
	h.add(t, target.ID, 2, entity.StatusPending)
	untouched := h.add(t, other.ID, 3, entity.StatusIncoming)

	res, err := h.manager.DeleteProgress(ctx, ledger.Selector{ReportID: target.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Nil(t, h.pointer(t, target.ID))
	assert.Equal(t, &untouched, h.pointer(t, other.ID))

	_, err = h.manager.DeleteProgress(ctx, ledger.Selector{ReportID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrInvalidReference)

	res, err = h.manager.DeleteProgress(ctx, ledger.Selector{ReportID: target.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deleted)
}

func TestDeleteProgress_InvalidSelectorMutatesNothing(t *testing.T) {
	h := newHarness(t)
	report := testutil.SeedReport(t, h.repos, "")
	id := h.add(t, report.ID, 1, entity.StatusIncoming)

	_, err := h.manager.DeleteProgress(context.Background(), ledger.Selector{IDs: []string{id}, All: true})
	assert.ErrorIs(t, err, ledger.ErrInvalidSelector)

	_, err = h.manager.DeleteProgress(context.Background(), ledger.Selector{})
	assert.ErrorIs(t, err, ledger.ErrInvalidSelector)

	assert.Len(t, h.entries(t, report.ID), 1)
	assert.Equal(t, &id, h.pointer(t, report.ID))
}

func TestDeleteProgress_AllWithCleanupOutage(t *testing.T) {
	flaky := &flakyBlobs{failDeletes: map[string]bool{}}
	h := newHarness(t, withBlobs(func(b ports.BlobStore) ports.BlobStore {
		flaky.BlobStore = b
		return flaky
	}))
	ctx := context.Background()
	healthy := testutil.SeedReport(t, h.repos, "")
	outage := testutil.SeedReport(t, h.repos, "")

	h.add(t, healthy.ID, 1, entity.StatusIncoming, media("h.png", pngData))
	outageID := h.add(t, outage.ID, 2, entity.StatusIncoming, media("o.png", pngData))

	entry, err := h.repos.Progress().Get(ctx, outageID)
	require.NoError(t, err)
	require.Len(t, entry.Media, 1)
	flaky.failDeletes[entry.Media[0].Name] = true

	res, err := h.manager.DeleteProgress(ctx, ledger.Selector{All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)

	for _, r := range res.Reports {
		assert.Nil(t, r.CurrentProgressID)
		assert.NoError(t, r.Err)
		if r.ReportID == outage.ID {
			assert.Equal(t, entry.Media, r.CleanupFailures)
		} else {
			assert.Empty(t, r.CleanupFailures)
		}
	}

	assert.Nil(t, h.pointer(t, healthy.ID))
	assert.Nil(t, h.pointer(t, outage.ID))
	assert.Empty(t, h.entries(t, healthy.ID))
	assert.Empty(t, h.entries(t, outage.ID))
	assert.Equal(t, 1, h.blobCount(t))
	assert.Equal(t, int64(1), h.env.Metrics.CounterTotal("ledger.blob_cleanup.failure"))
}

func TestDeleteProgress_FailedReportDoesNotBlockOthers(t *testing.T) {
	failing := &lockFailingRepos{}
	h := newHarness(t, withRepos(func(r ports.Repositories) ports.Repositories {
		failing.Repositories = r
		return failing
	}))
	ctx := context.Background()
	good := testutil.SeedReport(t, h.repos, "")
	bad := testutil.SeedReport(t, h.repos, "")

	h.add(t, good.ID, 1, entity.StatusIncoming, media("g.png", pngData))
	badID := h.add(t, bad.ID, 2, entity.StatusIncoming, media("b.png", pngData))
	failing.reportID = bad.ID

	res, err := h.manager.DeleteProgress(ctx, ledger.Selector{All: true})
	require.Error(t, err)

	var partial *ledger.PartialBatchError
	require.True(t, errors.As(err, &partial))
	assert.ErrorIs(t, err, ledger.ErrPartialBatchFailure)
	require.Len(t, partial.Failed(), 1)
	assert.Equal(t, bad.ID, partial.Failed()[0].ReportID)
	assert.ErrorIs(t, partial.Failed()[0].Err, ledger.ErrTransactionFailure)

	require.NotNil(t, res)
	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, h.entries(t, good.ID))
	assert.Nil(t, h.pointer(t, good.ID))

	assert.Len(t, h.entries(t, bad.ID), 1)
	assert.Equal(t, &badID, h.pointer(t, bad.ID))
	assert.Equal(t, 1, h.blobCount(t))
}

// After any mix of additions and deletions the pointer names the latest
// surviving entry, or nothing.
func TestPointerInvariant_RandomHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	report := testutil.SeedReport(t, h.repos, "")
	rng := rand.New(rand.NewSource(7))
	statuses := entity.ProgressStatuses()

	var live []string
	for step := 0; step < 60; step++ {
		if len(live) == 0 || rng.Intn(3) > 0 {
			// Minutes repeat, so equal timestamps are exercised too.
			live = append(live, h.add(t, report.ID, rng.Intn(20), statuses[rng.Intn(len(statuses))]))
		} else {
			n := 1 + rng.Intn(len(live))
			rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
			_, err := h.manager.DeleteProgress(ctx, ledger.Selector{IDs: live[:n]})
			require.NoError(t, err)
			live = append([]string(nil), live[n:]...)
		}

		entries := h.entries(t, report.ID)
		require.Len(t, entries, len(live))
		if len(entries) == 0 {
			require.Nil(t, h.pointer(t, report.ID), "step %d", step)
			continue
		}
		// entries are ordered oldest first
		require.Equal(t, &entries[len(entries)-1].ID, h.pointer(t, report.ID), "step %d", step)
	}
}
