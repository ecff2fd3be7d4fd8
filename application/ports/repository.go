package ports

import (
	"context"
	"errors"
	"time"

	"ledger/domain/entity"
)

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("entity not found")

// ReportFilter narrows report listings
type ReportFilter struct {
	TechnicianID string
}

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	Get(ctx context.Context, id string) (*entity.Report, error)
	GetView(ctx context.Context, id string) (*entity.ReportView, error)
	Exists(ctx context.Context, id string) (bool, error)
	TicketExists(ctx context.Context, ticket string) (bool, error)
	List(ctx context.Context, filter ReportFilter) ([]*entity.ReportView, error)
	ListIDs(ctx context.Context) ([]string, error)

	// Lock takes the report's row lock for the rest of the transaction by
	// touching updated_at. Returns ErrNotFound when the report is missing.
	Lock(ctx context.Context, id string, at time.Time) error

	SetCurrentProgress(ctx context.Context, id string, progressID *string) error
	SetTechnician(ctx context.Context, id, technicianID string) error
	SetPriority(ctx context.Context, id string, priority entity.Priority) error
	Delete(ctx context.Context, id string) error
}

type ProgressRepository interface {
	// Create inserts the entry and its media locators
	Create(ctx context.Context, progress *entity.Progress) error
	Get(ctx context.Context, id string) (*entity.Progress, error)

	// NextSeq returns the next insertion counter for a report
	NextSeq(ctx context.Context, reportID string) (int64, error)

	// LatestCreatedAt returns the creation time of the report's newest entry,
	// nil when the report has none
	LatestCreatedAt(ctx context.Context, reportID string) (*time.Time, error)

	// ListByReport returns a report's entries oldest first, media attached
	ListByReport(ctx context.Context, reportID string) ([]*entity.Progress, error)

	// ListViews returns entries newest first, optionally for a single report
	ListViews(ctx context.Context, reportID string) ([]*entity.ProgressView, error)

	UpdateStatus(ctx context.Context, id string, status entity.ProgressStatus, at time.Time) error

	// DeleteByIDs removes entries and their media rows, returning rows removed
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)

	// ReportIDsOf returns the distinct owning reports of the given entries
	ReportIDsOf(ctx context.Context, ids []string) ([]string, error)

	// ReportIDs returns every report that owns at least one entry
	ReportIDs(ctx context.Context) ([]string, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
}

// Repositories groups the ledger store repositories over one Executor
type Repositories interface {
	Reports() ReportRepository
	Progress() ProgressRepository
	Users() UserRepository

	// WithTx returns repositories bound to an open transaction
	WithTx(tx Transaction) Repositories
}
