package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"ledger/application/ports"
	"ledger/domain/entity"
)

type progressRepository struct {
	*baseRepository[entity.Progress]
}

type mediaRow struct {
	ProgressID string `db:"progress_id"`
	Ord        int    `db:"ord"`
	entity.Locator
}

func (r *progressRepository) Create(ctx context.Context, progress *entity.Progress) error {
	query := r.qb.Insert("progress").
		Columns(
			"id", "report_id", "seq", "status", "description",
			"technician_id", "external_technician", "created_at", "updated_at",
		).
		Values(
			progress.ID, progress.ReportID, progress.Seq, progress.Status, progress.Description,
			progress.TechnicianID, progress.ExternalTechnician, progress.CreatedAt, progress.UpdatedAt,
		)

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create progress: %w", err)
	}

	if len(progress.Media) > 0 {
		media := r.qb.Insert("progress_media").Columns("progress_id", "ord", "name", "url")
		for i, loc := range progress.Media {
			media = media.Values(progress.ID, i, loc.Name, loc.URL)
		}
		if _, err := r.exec(ctx, media); err != nil {
			return fmt.Errorf("failed to create progress media: %w", err)
		}
	}

	r.metrics.IncrementCounter("repository.progress.create", nil)
	return nil
}

func (r *progressRepository) Get(ctx context.Context, id string) (*entity.Progress, error) {
	progress, err := r.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	media, err := r.mediaFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	progress.Media = media[id]
	return progress, nil
}

func (r *progressRepository) NextSeq(ctx context.Context, reportID string) (int64, error) {
	var next int64
	query := r.qb.Select("COALESCE(MAX(seq), 0) + 1").From("progress").Where(squirrel.Eq{"report_id": reportID})
	if err := r.get(ctx, &next, query); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *progressRepository) LatestCreatedAt(ctx context.Context, reportID string) (*time.Time, error) {
	var at time.Time
	query := r.qb.Select("created_at").From("progress").
		Where(squirrel.Eq{"report_id": reportID}).
		OrderBy("created_at DESC", "seq DESC").
		Limit(1)
	err := r.get(ctx, &at, query)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func (r *progressRepository) ListByReport(ctx context.Context, reportID string) ([]*entity.Progress, error) {
	var rows []entity.Progress
	query := r.qb.Select("*").From("progress").
		Where(squirrel.Eq{"report_id": reportID}).
		OrderBy("created_at ASC", "seq ASC")
	if err := r.selectInto(ctx, &rows, query); err != nil {
		return nil, err
	}

	entries := pointers(rows)
	ids := make([]string, len(entries))
	for i, p := range entries {
		ids[i] = p.ID
	}
	media, err := r.mediaFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range entries {
		p.Media = media[p.ID]
	}
	return entries, nil
}

func (r *progressRepository) ListViews(ctx context.Context, reportID string) ([]*entity.ProgressView, error) {
	query := r.qb.Select("p.*", "u.name AS technician_name").
		From("progress p").
		LeftJoin("users u ON u.id = p.technician_id").
		OrderBy("p.created_at DESC", "p.seq DESC")
	if reportID != "" {
		query = query.Where(squirrel.Eq{"p.report_id": reportID})
	}

	var rows []entity.ProgressView
	if err := r.selectInto(ctx, &rows, query); err != nil {
		return nil, err
	}

	views := pointers(rows)
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	media, err := r.mediaFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		v.Media = media[v.ID]
		if v.Media == nil {
			v.Media = []entity.Locator{}
		}
	}
	return views, nil
}

func (r *progressRepository) UpdateStatus(ctx context.Context, id string, status entity.ProgressStatus, at time.Time) error {
	query := r.qb.Update("progress").
		Set("status", status).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id})

	affected, err := r.exec(ctx, query)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *progressRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, chunk := range chunks(ids) {
		if _, err := r.exec(ctx, r.qb.Delete("progress_media").Where(squirrel.Eq{"progress_id": chunk})); err != nil {
			return total, err
		}
		affected, err := r.exec(ctx, r.qb.Delete("progress").Where(squirrel.Eq{"id": chunk}))
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

func (r *progressRepository) ReportIDsOf(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]bool)
	var reportIDs []string
	for _, chunk := range chunks(ids) {
		var got []string
		query := r.qb.Select("DISTINCT report_id").From("progress").Where(squirrel.Eq{"id": chunk})
		if err := r.selectInto(ctx, &got, query); err != nil {
			return nil, err
		}
		for _, id := range got {
			if !seen[id] {
				seen[id] = true
				reportIDs = append(reportIDs, id)
			}
		}
	}
	return reportIDs, nil
}

func (r *progressRepository) ReportIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := r.qb.Select("DISTINCT report_id").From("progress").OrderBy("report_id ASC")
	if err := r.selectInto(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}

// mediaFor loads the locators of the given entries keyed by entry id, in
// upload order
func (r *progressRepository) mediaFor(ctx context.Context, ids []string) (map[string][]entity.Locator, error) {
	media := make(map[string][]entity.Locator, len(ids))
	for _, chunk := range chunks(ids) {
		var rows []mediaRow
		query := r.qb.Select("progress_id", "ord", "name", "url").
			From("progress_media").
			Where(squirrel.Eq{"progress_id": chunk}).
			OrderBy("progress_id ASC", "ord ASC")
		if err := r.selectInto(ctx, &rows, query); err != nil {
			return nil, err
		}
		for _, row := range rows {
			media[row.ProgressID] = append(media[row.ProgressID], row.Locator)
		}
	}
	return media, nil
}
