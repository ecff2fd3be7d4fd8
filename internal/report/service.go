// Package report manages maintenance reports: submission with the seed
// progress entry, lookup, technician assignment, priority and deletion.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/internal/ledger"
)

const (
	ticketAttempts     = 5
	seedDescription    = "Report received"
	reportPhotoPrefix  = "reports"
	seedProgressPrefix = "progress"
)

// Service implements the report operations on top of the progress ledger
type Service struct {
	db      ports.Database
	repos   ports.Repositories
	ledger  *ledger.Manager
	clock   func() time.Time
	logger  ports.Logger
	metrics ports.Metrics
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces the wall clock used for timestamps and tickets
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func NewService(db ports.Database, repos ports.Repositories, manager *ledger.Manager, obs ports.Observability, opts ...Option) (*Service, error) {
	logger, metrics, err := obs.ComponentsScoped("report")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	s := &Service{
		db:      db,
		repos:   repos,
		ledger:  manager,
		clock:   time.Now,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// CreateReportInput is an occupant's submission
type CreateReportInput struct {
	ReporterName string          `validate:"required,max=255"`
	PhoneNumber  string          `validate:"required,phone"`
	Location     entity.Location `validate:"required,location"`
	Room         string          `validate:"required,max=255"`
	Description  string          `validate:"required,max=1000"`
	Latitude     *float64        `validate:"omitempty,latitude"`
	Longitude    *float64        `validate:"omitempty,longitude"`
	Photo        entity.Media
}

// CreateReportResult identifies the new report and its seed entry
type CreateReportResult struct {
	Report     *entity.Report `json:"report"`
	ProgressID string         `json:"progress_id"`
}

// CreateReport stores a report together with an Incoming progress entry. The
// photo is uploaded twice so the report and the seed entry each own a blob.
// Uploads happen before the transaction and are removed again if it fails.
func (s *Service) CreateReport(ctx context.Context, in CreateReportInput) (*CreateReportResult, error) {
	if err := s.ledger.CheckInput(in); err != nil {
		return nil, err
	}
	contentTypes, err := s.ledger.CheckMedia([]entity.Media{in.Photo})
	if err != nil {
		return nil, err
	}

	now := s.now()
	ticket, err := s.uniqueTicket(ctx, now)
	if err != nil {
		return nil, err
	}

	photo, err := s.ledger.UploadMedia(ctx, reportPhotoPrefix, []entity.Media{in.Photo}, contentTypes)
	if err != nil {
		return nil, err
	}
	seedMedia, err := s.ledger.UploadMedia(ctx, seedProgressPrefix, []entity.Media{in.Photo}, contentTypes)
	if err != nil {
		s.ledger.DiscardMedia(ctx, photo)
		return nil, err
	}

	report := &entity.Report{
		ID:           uuid.NewString(),
		Ticket:       ticket,
		ReporterName: in.ReporterName,
		PhoneNumber:  in.PhoneNumber,
		Location:     in.Location,
		Room:         in.Room,
		Description:  in.Description,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		PhotoName:    &photo[0].Name,
		PhotoURL:     &photo[0].URL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	seed := &entity.Progress{
		ID:          uuid.NewString(),
		ReportID:    report.ID,
		Status:      entity.StatusIncoming,
		Description: seedDescription,
		CreatedAt:   now,
		UpdatedAt:   now,
		Media:       seedMedia,
	}

	err = s.db.Transaction(ctx, func(tx ports.Transaction) error {
		repos := s.repos.WithTx(tx)
		if err := repos.Reports().Create(ctx, report); err != nil {
			return err
		}
		return s.ledger.AppendInTx(ctx, repos, seed)
	})
	if err != nil {
		s.logger.Error("failed to create report, discarding uploaded photo", "error", err, "ticket", ticket)
		s.ledger.DiscardMedia(ctx, append(photo, seedMedia...))
		s.metrics.IncrementCounter("report.create.failure", nil)
		return nil, ledger.NewError(ledger.CodeTransactionFailure, err, "failed to create report")
	}

	report.CurrentProgressID = &seed.ID
	s.logger.Info("report created", "report_id", report.ID, "ticket", ticket, "progress_id", seed.ID)
	s.metrics.IncrementCounter("report.create.success", nil)
	return &CreateReportResult{Report: report, ProgressID: seed.ID}, nil
}

func (s *Service) uniqueTicket(ctx context.Context, at time.Time) (string, error) {
	for attempt := 0; attempt < ticketAttempts; attempt++ {
		ticket, err := NewTicket(at)
		if err != nil {
			return "", err
		}
		taken, err := s.repos.Reports().TicketExists(ctx, ticket)
		if err != nil {
			return "", ledger.NewError(ledger.CodeTransactionFailure, err, "failed to check ticket")
		}
		if !taken {
			return ticket, nil
		}
		s.logger.Info("ticket collision, retrying", "ticket", ticket, "attempt", attempt+1)
	}
	return "", ledger.NewError(ledger.CodeTransactionFailure, nil, "no free ticket after %d attempts", ticketAttempts)
}

// GetReport returns a report with its technician name and current status
func (s *Service) GetReport(ctx context.Context, id string) (*entity.ReportView, error) {
	view, err := s.repos.Reports().GetView(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, ledger.NewError(ledger.CodeInvalidReference, err, "report %s does not exist", id)
	}
	if err != nil {
		return nil, ledger.NewError(ledger.CodeTransactionFailure, err, "failed to load report %s", id)
	}
	return view, nil
}

// ListReports returns reports newest first
func (s *Service) ListReports(ctx context.Context, filter ports.ReportFilter) ([]*entity.ReportView, error) {
	views, err := s.repos.Reports().List(ctx, filter)
	if err != nil {
		return nil, ledger.NewError(ledger.CodeTransactionFailure, err, "failed to list reports")
	}
	if views == nil {
		views = []*entity.ReportView{}
	}
	return views, nil
}

// AssignTechnician sets the report's technician; the user must have the
// Technician role
func (s *Service) AssignTechnician(ctx context.Context, reportID, technicianID string) error {
	if technicianID == "" {
		return ledger.NewError(ledger.CodeInvalidInput, nil, "technician id is required")
	}
	if err := s.ledger.CheckTechnician(ctx, technicianID); err != nil {
		return err
	}
	if err := s.repos.Reports().SetTechnician(ctx, reportID, technicianID); err != nil {
		return s.updateError(err, reportID)
	}
	s.logger.Info("technician assigned", "report_id", reportID, "technician_id", technicianID)
	return nil
}

// SetPriority changes the report's priority
func (s *Service) SetPriority(ctx context.Context, reportID string, priority entity.Priority) error {
	if !priority.IsValid() {
		return ledger.NewError(ledger.CodeInvalidInput, nil, "priority %q must be High, Medium or Low", priority)
	}
	if err := s.repos.Reports().SetPriority(ctx, reportID, priority); err != nil {
		return s.updateError(err, reportID)
	}
	s.logger.Info("priority set", "report_id", reportID, "priority", priority)
	return nil
}

func (s *Service) updateError(err error, reportID string) error {
	if errors.Is(err, ports.ErrNotFound) {
		return ledger.NewError(ledger.CodeInvalidReference, err, "report %s does not exist", reportID)
	}
	return ledger.NewError(ledger.CodeTransactionFailure, err, "failed to update report %s", reportID)
}

// DeleteReports removes the given reports, or every report when ids is empty,
// with all their progress entries. Each report is deleted in its own
// transaction; blobs are removed after commit. Unknown ids are skipped.
func (s *Service) DeleteReports(ctx context.Context, ids []string) (*ledger.DeleteResult, error) {
	targets := ids
	if len(targets) == 0 {
		all, err := s.repos.Reports().ListIDs(ctx)
		if err != nil {
			return nil, ledger.NewError(ledger.CodeTransactionFailure, err, "failed to list reports")
		}
		targets = all
	}
	targets = append([]string(nil), targets...)
	sort.Strings(targets)

	result := &ledger.DeleteResult{Reports: make([]ledger.ReportDeletion, 0, len(targets))}
	failed := 0
	for _, id := range targets {
		outcome, found := s.deleteReport(ctx, id)
		if !found {
			continue
		}
		if outcome.Err != nil {
			failed++
		}
		result.Deleted += outcome.Deleted
		result.Reports = append(result.Reports, outcome)
	}

	s.logger.Info("reports deleted", "requested", len(ids), "deleted", result.Deleted, "failed", failed)
	if failed > 0 {
		return result, &ledger.PartialBatchError{Reports: result.Reports}
	}
	return result, nil
}

// deleteReport reports found=false when the report did not exist
func (s *Service) deleteReport(ctx context.Context, id string) (ledger.ReportDeletion, bool) {
	outcome := ledger.ReportDeletion{ReportID: id}
	var blobs []entity.Locator

	err := s.db.Transaction(ctx, func(tx ports.Transaction) error {
		repos := s.repos.WithTx(tx)
		if err := repos.Reports().Lock(ctx, id, s.now()); err != nil {
			return err
		}

		report, err := repos.Reports().Get(ctx, id)
		if err != nil {
			return err
		}
		entries, err := repos.Progress().ListByReport(ctx, id)
		if err != nil {
			return err
		}

		blobs = blobs[:0]
		if report.PhotoName != nil {
			loc := entity.Locator{Name: *report.PhotoName}
			if report.PhotoURL != nil {
				loc.URL = *report.PhotoURL
			}
			blobs = append(blobs, loc)
		}
		progressIDs := make([]string, len(entries))
		for i, p := range entries {
			progressIDs[i] = p.ID
			blobs = append(blobs, p.Media...)
		}

		if _, err := repos.Progress().DeleteByIDs(ctx, progressIDs); err != nil {
			return err
		}
		return repos.Reports().Delete(ctx, id)
	})
	if errors.Is(err, ports.ErrNotFound) {
		return outcome, false
	}
	if err != nil {
		s.logger.Error("failed to delete report", "error", err, "report_id", id)
		outcome.Err = ledger.NewError(ledger.CodeTransactionFailure, err, "failed to delete report %s", id)
		return outcome, true
	}

	outcome.Deleted = 1
	outcome.CleanupFailures = s.ledger.DiscardMedia(ctx, blobs)
	return outcome, true
}
