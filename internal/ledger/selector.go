package ledger

import "ledger/domain/entity"

// Selector names the progress entries to delete. Exactly one field must be set.
type Selector struct {
	IDs      []string `json:"ids,omitempty"`
	ReportID string   `json:"report_id,omitempty"`
	All      bool     `json:"all,omitempty"`
}

// Validate returns ErrInvalidSelector unless exactly one form is set
func (s Selector) Validate() error {
	set := 0
	if len(s.IDs) > 0 {
		set++
	}
	if s.ReportID != "" {
		set++
	}
	if s.All {
		set++
	}
	if set != 1 {
		return ErrInvalidSelector
	}
	for _, id := range s.IDs {
		if id == "" {
			return NewError(CodeInvalidSelector, nil, "selector contains an empty id")
		}
	}
	return nil
}

func (s Selector) kind() string {
	switch {
	case len(s.IDs) > 0:
		return "ids"
	case s.ReportID != "":
		return "report"
	default:
		return "all"
	}
}

// ReportDeletion is the outcome of a deletion for one report
type ReportDeletion struct {
	ReportID          string           `json:"report_id"`
	Deleted           int              `json:"deleted"`
	CurrentProgressID *string          `json:"current_progress_id"`
	CleanupFailures   []entity.Locator `json:"cleanup_failures,omitempty"`
	Err               error            `json:"-"`
}

// DeleteResult aggregates a DeleteProgress call
type DeleteResult struct {
	Deleted int              `json:"deleted"`
	Reports []ReportDeletion `json:"reports"`
}
