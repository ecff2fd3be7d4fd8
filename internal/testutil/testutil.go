// Package testutil opens migrated in-memory ledger stores and seeds rows for
// package tests.
package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/infrastructure/config"
	"ledger/infrastructure/database"
	"ledger/infrastructure/observability"
	"ledger/infrastructure/observability/adapters/stdout"
)

// Env bundles what a test needs to build services over a real sqlite store
type Env struct {
	DB      *database.DB
	Obs     ports.Observability
	Logger  ports.Logger
	Metrics *stdout.Metrics
}

// NewEnv opens a private in-memory sqlite database with the schema applied.
// Logs and metric echoes are discarded; metric values stay queryable.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	logger := stdout.NewLoggerTo(io.Discard)
	metrics := stdout.NewMetricsTo(io.Discard)

	db, err := database.NewSQLite(&config.DatabaseConfig{Path: ":memory:"}, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(context.Background(), db, logger)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	return &Env{
		DB:      db,
		Obs:     observability.New(cfg, logger, metrics),
		Logger:  logger,
		Metrics: metrics,
	}
}

// Now is a fixed reference instant for seeded rows
var Now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// SeedUser inserts a user with the given role
func SeedUser(t *testing.T, repos ports.Repositories, name string, role entity.Role) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     uuid.NewString() + "@example.test",
		Role:      role,
		CreatedAt: Now,
	}
	require.NoError(t, repos.Users().Create(context.Background(), user))
	return user
}

// SeedReport inserts a report with no progress entries
func SeedReport(t *testing.T, repos ports.Repositories, ticket string) *entity.Report {
	t.Helper()
	if ticket == "" {
		ticket = "20250314" + uuid.NewString()[:5]
	}
	report := &entity.Report{
		ID:           uuid.NewString(),
		Ticket:       ticket,
		ReporterName: "Dana",
		PhoneNumber:  "+60123456789",
		Location:     entity.LocationInRoom,
		Room:         "B-204",
		Description:  "Projector flickers",
		CreatedAt:    Now,
		UpdatedAt:    Now,
	}
	require.NoError(t, repos.Reports().Create(context.Background(), report))
	return report
}

// SeedProgress inserts an entry directly, bypassing the ledger; the report's
// current pointer is left untouched
func SeedProgress(t *testing.T, repos ports.Repositories, reportID string, status entity.ProgressStatus, createdAt time.Time, media ...entity.Locator) *entity.Progress {
	t.Helper()
	ctx := context.Background()

	seq, err := repos.Progress().NextSeq(ctx, reportID)
	require.NoError(t, err)

	progress := &entity.Progress{
		ID:          uuid.NewString(),
		ReportID:    reportID,
		Seq:         seq,
		Status:      status,
		Description: string(status),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		Media:       media,
	}
	require.NoError(t, repos.Progress().Create(ctx, progress))
	return progress
}
