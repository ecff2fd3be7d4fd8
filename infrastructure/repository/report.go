package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"ledger/application/ports"
	"ledger/domain/entity"
)

type reportRepository struct {
	*baseRepository[entity.Report]
}

func (r *reportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := r.qb.Insert("reports").
		Columns(
			"id", "ticket", "reporter_name", "phone_number", "location", "room",
			"description", "priority", "technician_id", "latitude", "longitude",
			"photo_name", "photo_url", "current_progress_id", "created_at", "updated_at",
		).
		Values(
			report.ID, report.Ticket, report.ReporterName, report.PhoneNumber, report.Location, report.Room,
			report.Description, report.Priority, report.TechnicianID, report.Latitude, report.Longitude,
			report.PhotoName, report.PhotoURL, report.CurrentProgressID, report.CreatedAt, report.UpdatedAt,
		)

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	r.metrics.IncrementCounter("repository.reports.create", nil)
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id string) (*entity.Report, error) {
	return r.getByID(ctx, id)
}

// viewQuery selects reports with the assigned technician's name and the
// status of the current progress entry
func (r *reportRepository) viewQuery() squirrel.SelectBuilder {
	return r.qb.Select("r.*", "u.name AS technician_name", "p.status AS current_status").
		From("reports r").
		LeftJoin("users u ON u.id = r.technician_id").
		LeftJoin("progress p ON p.id = r.current_progress_id")
}

func (r *reportRepository) GetView(ctx context.Context, id string) (*entity.ReportView, error) {
	var view entity.ReportView
	if err := r.get(ctx, &view, r.viewQuery().Where(squirrel.Eq{"r.id": id})); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *reportRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": id})
}

func (r *reportRepository) TicketExists(ctx context.Context, ticket string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"ticket": ticket})
}

func (r *reportRepository) List(ctx context.Context, filter ports.ReportFilter) ([]*entity.ReportView, error) {
	query := r.viewQuery().OrderBy("r.created_at DESC", "r.id ASC")
	if filter.TechnicianID != "" {
		query = query.Where(squirrel.Eq{"r.technician_id": filter.TechnicianID})
	}

	var views []entity.ReportView
	if err := r.selectInto(ctx, &views, query); err != nil {
		return nil, err
	}
	return pointers(views), nil
}

func (r *reportRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.selectInto(ctx, &ids, r.qb.Select("id").From("reports").OrderBy("id ASC")); err != nil {
		return nil, err
	}
	return ids, nil
}

// Lock writes updated_at so the row stays write-locked until the enclosing
// transaction ends. Works the same on PostgreSQL and SQLite.
func (r *reportRepository) Lock(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, r.qb.Update("reports").Set("updated_at", at))
}

func (r *reportRepository) SetCurrentProgress(ctx context.Context, id string, progressID *string) error {
	return r.update(ctx, id, r.qb.Update("reports").Set("current_progress_id", progressID))
}

func (r *reportRepository) SetTechnician(ctx context.Context, id, technicianID string) error {
	return r.update(ctx, id, r.qb.Update("reports").Set("technician_id", technicianID))
}

func (r *reportRepository) SetPriority(ctx context.Context, id string, priority entity.Priority) error {
	return r.update(ctx, id, r.qb.Update("reports").Set("priority", priority))
}

func (r *reportRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}

func (r *reportRepository) update(ctx context.Context, id string, query squirrel.UpdateBuilder) error {
	affected, err := r.exec(ctx, query.Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
