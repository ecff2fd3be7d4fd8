package ledger

import (
	"context"
	"errors"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// ListProgress returns progress entries newest first, for one report when
// reportID is set and across all reports otherwise.
func (m *Manager) ListProgress(ctx context.Context, reportID string) (views []*entity.ProgressView, err error) {
	start := m.clock()
	defer func() { m.record("list_progress", start, err) }()

	if reportID != "" {
		exists, err := m.repos.Reports().Exists(ctx, reportID)
		if err != nil {
			return nil, NewError(CodeTransactionFailure, err, "failed to look up report %s", reportID)
		}
		if !exists {
			return nil, NewError(CodeInvalidReference, nil, "report %s does not exist", reportID)
		}
	}

	views, err = m.repos.Progress().ListViews(ctx, reportID)
	if err != nil {
		return nil, NewError(CodeTransactionFailure, err, "failed to list progress")
	}
	return views, nil
}

type statusInput struct {
	ProgressID string                `validate:"required"`
	Status     entity.ProgressStatus `validate:"required,progress_status"`
}

// UpdateProgressStatus relabels an entry. Ordering and the report's current
// pointer are unaffected.
func (m *Manager) UpdateProgressStatus(ctx context.Context, progressID string, status entity.ProgressStatus) (progress *entity.Progress, err error) {
	start := m.clock()
	defer func() { m.record("update_status", start, err) }()

	if err := m.CheckInput(statusInput{ProgressID: progressID, Status: status}); err != nil {
		return nil, err
	}

	now := m.now()
	if err := m.repos.Progress().UpdateStatus(ctx, progressID, status, now); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, NewError(CodeInvalidReference, err, "progress %s does not exist", progressID)
		}
		return nil, NewError(CodeTransactionFailure, err, "failed to update progress %s", progressID)
	}

	progress, err = m.repos.Progress().Get(ctx, progressID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, NewError(CodeInvalidReference, err, "progress %s does not exist", progressID)
		}
		return nil, NewError(CodeTransactionFailure, err, "failed to load progress %s", progressID)
	}

	m.logger.Info("progress status updated",
		"progress_id", progressID,
		"report_id", progress.ReportID,
		"status", status)
	m.publish(ctx, newEvent(EventProgressStatusUpdated, progress.ReportID, now).
		withProgress(progressID).
		withStatus(status))
	return progress, nil
}
