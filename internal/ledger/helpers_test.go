package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/infrastructure/blobstore"
	"ledger/infrastructure/config"
	"ledger/infrastructure/repository"
	"ledger/infrastructure/storage/adapters/fs"
	"ledger/internal/ledger"
	"ledger/internal/testutil"
)

var (
	pngData  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	jpegData = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
)

var testLimits = config.LedgerConfig{MaxMediaBytes: 1 << 20, MaxMediaItems: 3}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	env     *testutil.Env
	repos   ports.Repositories
	storage *fs.Storage
	blobs   ports.BlobStore
	clock   *testClock
	manager *ledger.Manager
}

type harnessOption func(*harness)

// withBlobs swaps the blob store; wrap receives the filesystem-backed store
func withBlobs(wrap func(ports.BlobStore) ports.BlobStore) harnessOption {
	return func(h *harness) { h.blobs = wrap(h.blobs) }
}

// withRepos swaps the repositories the manager sees
func withRepos(wrap func(ports.Repositories) ports.Repositories) harnessOption {
	return func(h *harness) { h.repos = wrap(h.repos) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	env := testutil.NewEnv(t)

	repos, err := repository.NewRepositories(env.DB, env.Obs)
	require.NoError(t, err)

	storage, err := fs.NewStorage(t.TempDir(), env.Logger, env.Metrics)
	require.NoError(t, err)

	h := &harness{
		env:     env,
		repos:   repos,
		storage: storage,
		blobs:   blobstore.New(storage, "", "http://files.test/uploads", env.Logger, env.Metrics),
		clock:   &testClock{now: testutil.Now},
	}
	for _, opt := range opts {
		opt(h)
	}

	h.manager, err = ledger.NewManager(env.DB, h.repos, h.blobs, testLimits, env.Obs, ledger.WithClock(h.clock.Now))
	require.NoError(t, err)
	return h
}

// add records an entry created at testutil.Now plus minute minutes
func (h *harness) add(t *testing.T, reportID string, minute int, status entity.ProgressStatus, media ...entity.Media) string {
	t.Helper()
	h.clock.Set(testutil.Now.Add(time.Duration(minute) * time.Minute))
	res, err := h.manager.AddProgress(context.Background(), ledger.AddProgressInput{
		ReportID:    reportID,
		Status:      status,
		Description: string(status),
		Media:       media,
	})
	require.NoError(t, err)
	return res.ProgressID
}

func (h *harness) pointer(t *testing.T, reportID string) *string {
	t.Helper()
	report, err := h.repos.Reports().Get(context.Background(), reportID)
	require.NoError(t, err)
	return report.CurrentProgressID
}

func (h *harness) entries(t *testing.T, reportID string) []*entity.Progress {
	t.Helper()
	entries, err := h.repos.Progress().ListByReport(context.Background(), reportID)
	require.NoError(t, err)
	return entries
}

func (h *harness) blobCount(t *testing.T) int {
	t.Helper()
	objects, err := h.storage.List(context.Background(), "", "")
	require.NoError(t, err)
	return len(objects)
}

func media(name string, data []byte) entity.Media {
	return entity.Media{Filename: name, Data: data}
}

var errOutage = errors.New("blob store unavailable")

// flakyBlobs fails the Nth upload and every delete of a name in failDeletes
type flakyBlobs struct {
	ports.BlobStore
	mu          sync.Mutex
	uploads     int
	failUpload  int
	failDeletes map[string]bool
}

func (f *flakyBlobs) Upload(ctx context.Context, data []byte, hint ports.UploadHint) (entity.Locator, error) {
	f.mu.Lock()
	f.uploads++
	n := f.uploads
	f.mu.Unlock()
	if n == f.failUpload {
		return entity.Locator{}, errOutage
	}
	return f.BlobStore.Upload(ctx, data, hint)
}

func (f *flakyBlobs) Delete(ctx context.Context, loc entity.Locator) error {
	f.mu.Lock()
	fail := f.failDeletes[loc.Name]
	f.mu.Unlock()
	if fail {
		return errOutage
	}
	return f.BlobStore.Delete(ctx, loc)
}

// lockFailingRepos makes the row lock of one report fail inside transactions
type lockFailingRepos struct {
	ports.Repositories
	reportID string
}

func (r *lockFailingRepos) WithTx(tx ports.Transaction) ports.Repositories {
	return &lockFailingRepos{Repositories: r.Repositories.WithTx(tx), reportID: r.reportID}
}

func (r *lockFailingRepos) Reports() ports.ReportRepository {
	return &lockFailingReports{ReportRepository: r.Repositories.Reports(), reportID: r.reportID}
}

type lockFailingReports struct {
	ports.ReportRepository
	reportID string
}

func (r *lockFailingReports) Lock(ctx context.Context, id string, at time.Time) error {
	if id == r.reportID {
		return errors.New("lock timeout")
	}
	return r.ReportRepository.Lock(ctx, id, at)
}

// cancellingBlobs cancels the caller's context on upload number cancelAt and
// fails that upload when fail is set. Deletes honor ctx like a network store.
type cancellingBlobs struct {
	ports.BlobStore
	cancel   context.CancelFunc
	mu       sync.Mutex
	uploads  int
	cancelAt int
	fail     bool
}

func (c *cancellingBlobs) Upload(ctx context.Context, data []byte, hint ports.UploadHint) (entity.Locator, error) {
	c.mu.Lock()
	c.uploads++
	n := c.uploads
	c.mu.Unlock()
	if n != c.cancelAt {
		return c.BlobStore.Upload(ctx, data, hint)
	}
	if c.fail {
		c.cancel()
		return entity.Locator{}, ctx.Err()
	}
	loc, err := c.BlobStore.Upload(ctx, data, hint)
	c.cancel()
	return loc, err
}

func (c *cancellingBlobs) Delete(ctx context.Context, loc entity.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.BlobStore.Delete(ctx, loc)
}
