package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// AddProgressInput carries a new status update for a report
type AddProgressInput struct {
	ReportID           string                `validate:"required"`
	Status             entity.ProgressStatus `validate:"required,progress_status"`
	Description        string                `validate:"required,max=1000"`
	TechnicianID       *string
	ExternalTechnician *string `validate:"omitempty,max=255"`
	Media              []entity.Media
}

// AddProgressResult identifies the recorded entry
type AddProgressResult struct {
	ProgressID string           `json:"progress_id"`
	Media      []entity.Locator `json:"media"`
}

// MediaURLs returns the public URLs of the stored media, in upload order
func (r *AddProgressResult) MediaURLs() []string {
	urls := make([]string, len(r.Media))
	for i, loc := range r.Media {
		urls[i] = loc.URL
	}
	return urls
}

// AddProgress appends a progress entry to a report and makes it the report's
// current status. Media is uploaded before the report row is locked; if the
// database work fails the uploads are deleted again.
func (m *Manager) AddProgress(ctx context.Context, in AddProgressInput) (result *AddProgressResult, err error) {
	start := m.clock()
	defer func() { m.record("add_progress", start, err) }()

	logger := m.logger.WithFields(map[string]interface{}{
		"report_id": in.ReportID,
		"status":    in.Status,
	})

	if err := m.CheckInput(in); err != nil {
		return nil, err
	}
	contentTypes, err := m.CheckMedia(in.Media)
	if err != nil {
		return nil, err
	}
	if err := m.checkAddReferences(ctx, in); err != nil {
		return nil, err
	}

	locators, err := m.UploadMedia(ctx, "progress", in.Media, contentTypes)
	if err != nil {
		return nil, err
	}

	now := m.now()
	progress := &entity.Progress{
		ID:                 uuid.NewString(),
		ReportID:           in.ReportID,
		Status:             in.Status,
		Description:        in.Description,
		TechnicianID:       in.TechnicianID,
		ExternalTechnician: in.ExternalTechnician,
		CreatedAt:          now,
		UpdatedAt:          now,
		Media:              locators,
	}

	err = m.db.Transaction(ctx, func(tx ports.Transaction) error {
		return m.AppendInTx(ctx, m.repos.WithTx(tx), progress)
	})
	if err != nil {
		logger.Error("failed to record progress, discarding uploaded media",
			"error", err,
			"media", len(locators))
		m.DiscardMedia(ctx, locators)
		if errors.Is(err, ports.ErrNotFound) {
			return nil, NewError(CodeInvalidReference, err, "report %s does not exist", in.ReportID)
		}
		return nil, NewError(CodeTransactionFailure, err, "failed to record progress for report %s", in.ReportID)
	}

	logger.Info("progress added", "progress_id", progress.ID, "seq", progress.Seq, "media", len(locators))
	m.publish(ctx, newEvent(EventProgressAdded, progress.ReportID, now).
		withProgress(progress.ID).
		withStatus(progress.Status).
		withCurrent(&progress.ID))

	return &AddProgressResult{ProgressID: progress.ID, Media: locators}, nil
}

// AppendInTx records progress as the newest entry of its report using repos
// bound to an open transaction: the report row is locked, the entry gets the
// next seq and the report's current pointer (and technician, when set) is
// moved to it. CreatedAt is raised to the newest existing entry's timestamp
// when it is older, so the new entry always sorts last. ErrNotFound means the
// report is gone.
func (m *Manager) AppendInTx(ctx context.Context, repos ports.Repositories, progress *entity.Progress) error {
	if err := repos.Reports().Lock(ctx, progress.ReportID, progress.CreatedAt); err != nil {
		return err
	}

	latest, err := repos.Progress().LatestCreatedAt(ctx, progress.ReportID)
	if err != nil {
		return err
	}
	if latest != nil && latest.After(progress.CreatedAt) {
		progress.CreatedAt = latest.UTC()
		if progress.UpdatedAt.Before(progress.CreatedAt) {
			progress.UpdatedAt = progress.CreatedAt
		}
	}

	seq, err := repos.Progress().NextSeq(ctx, progress.ReportID)
	if err != nil {
		return err
	}
	progress.Seq = seq

	if err := repos.Progress().Create(ctx, progress); err != nil {
		return err
	}
	if err := repos.Reports().SetCurrentProgress(ctx, progress.ReportID, &progress.ID); err != nil {
		return err
	}
	if progress.TechnicianID != nil {
		if err := repos.Reports().SetTechnician(ctx, progress.ReportID, *progress.TechnicianID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) checkAddReferences(ctx context.Context, in AddProgressInput) error {
	exists, err := m.repos.Reports().Exists(ctx, in.ReportID)
	if err != nil {
		return NewError(CodeTransactionFailure, err, "failed to look up report %s", in.ReportID)
	}
	if !exists {
		return NewError(CodeInvalidReference, nil, "report %s does not exist", in.ReportID)
	}

	if in.TechnicianID != nil {
		return m.CheckTechnician(ctx, *in.TechnicianID)
	}
	return nil
}

// CheckTechnician verifies that id names a user with the Technician role
func (m *Manager) CheckTechnician(ctx context.Context, id string) error {
	user, err := m.repos.Users().FindByID(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return NewError(CodeInvalidReference, err, "technician %s does not exist", id)
	}
	if err != nil {
		return NewError(CodeTransactionFailure, err, "failed to look up technician %s", id)
	}
	if !user.IsTechnician() {
		return NewError(CodeInvalidReference, nil, "user %s has role %s, not %s", id, user.Role, entity.RoleTechnician)
	}
	return nil
}
