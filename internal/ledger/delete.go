package ledger

import (
	"context"
	"errors"
	"sort"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// DeleteProgress removes the selected entries. Every affected report is
// handled in its own transaction, so a failure on one report leaves the
// others committed; in that case the result is returned together with a
// *PartialBatchError. Blobs of deleted entries are removed after commit and
// any that could not be removed are listed as cleanup failures.
func (m *Manager) DeleteProgress(ctx context.Context, sel Selector) (result *DeleteResult, err error) {
	start := m.clock()
	defer func() { m.record("delete_progress", start, err) }()

	if err := sel.Validate(); err != nil {
		return nil, err
	}

	reportIDs, err := m.affectedReports(ctx, sel)
	if err != nil {
		return nil, err
	}

	var doomed map[string]struct{}
	if len(sel.IDs) > 0 {
		doomed = idSet(sel.IDs)
	}

	result = &DeleteResult{Reports: make([]ReportDeletion, 0, len(reportIDs))}
	failed := 0
	for _, reportID := range reportIDs {
		outcome := m.deleteFromReport(ctx, reportID, doomed)
		if outcome.Err != nil {
			failed++
		}
		result.Deleted += outcome.Deleted
		result.Reports = append(result.Reports, outcome)
	}

	m.logger.Info("progress deleted",
		"selector", sel.kind(),
		"reports", len(reportIDs),
		"deleted", result.Deleted,
		"failed_reports", failed)

	if failed > 0 {
		return result, &PartialBatchError{Reports: result.Reports}
	}
	return result, nil
}

func (m *Manager) affectedReports(ctx context.Context, sel Selector) ([]string, error) {
	var (
		ids []string
		err error
	)
	switch {
	case len(sel.IDs) > 0:
		ids, err = m.repos.Progress().ReportIDsOf(ctx, sel.IDs)
	case sel.ReportID != "":
		var exists bool
		exists, err = m.repos.Reports().Exists(ctx, sel.ReportID)
		if err == nil && !exists {
			return nil, NewError(CodeInvalidReference, nil, "report %s does not exist", sel.ReportID)
		}
		ids = []string{sel.ReportID}
	default:
		ids, err = m.repos.Progress().ReportIDs(ctx)
	}
	if err != nil {
		return nil, NewError(CodeTransactionFailure, err, "failed to resolve affected reports")
	}
	sort.Strings(ids)
	return ids, nil
}

// deleteFromReport removes the entries of one report named in doomed, or all
// of its entries when doomed is nil, and recomputes the current pointer.
func (m *Manager) deleteFromReport(ctx context.Context, reportID string, doomed map[string]struct{}) ReportDeletion {
	outcome := ReportDeletion{ReportID: reportID}
	logger := m.logger.WithFields(map[string]interface{}{"report_id": reportID})
	now := m.now()

	var removed []*entity.Progress
	err := m.db.Transaction(ctx, func(tx ports.Transaction) error {
		repos := m.repos.WithTx(tx)
		if err := repos.Reports().Lock(ctx, reportID, now); err != nil {
			return err
		}

		entries, err := repos.Progress().ListByReport(ctx, reportID)
		if err != nil {
			return err
		}

		removed = removed[:0]
		gone := make(map[string]struct{}, len(entries))
		ids := make([]string, 0, len(entries))
		for _, p := range entries {
			if doomed != nil {
				if _, ok := doomed[p.ID]; !ok {
					continue
				}
			}
			removed = append(removed, p)
			gone[p.ID] = struct{}{}
			ids = append(ids, p.ID)
		}

		pointer := Reindex(entries, gone)
		n, err := repos.Progress().DeleteByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if err := repos.Reports().SetCurrentProgress(ctx, reportID, pointer); err != nil {
			return err
		}

		outcome.Deleted = int(n)
		outcome.CurrentProgressID = pointer
		return nil
	})
	if err != nil {
		logger.Error("failed to delete progress", "error", err)
		outcome.Deleted = 0
		outcome.CurrentProgressID = nil
		if errors.Is(err, ports.ErrNotFound) {
			outcome.Err = NewError(CodeInvalidReference, err, "report %s does not exist", reportID)
		} else {
			outcome.Err = NewError(CodeTransactionFailure, err, "failed to delete progress of report %s", reportID)
		}
		return outcome
	}

	var locators []entity.Locator
	ids := make([]string, 0, len(removed))
	for _, p := range removed {
		ids = append(ids, p.ID)
		locators = append(locators, p.Media...)
	}
	outcome.CleanupFailures = m.DiscardMedia(ctx, locators)

	m.publish(ctx, newEvent(EventProgressDeleted, reportID, now).
		withProgress(ids...).
		withCurrent(outcome.CurrentProgressID))
	return outcome
}
