package entity

import "time"

// Progress is one timestamped status update in a report's history.
// Entries of a report are totally ordered by (CreatedAt, Seq).
type Progress struct {
	ID                 string         `db:"id" json:"id"`
	ReportID           string         `db:"report_id" json:"report_id"`
	Seq                int64          `db:"seq" json:"-"`
	Status             ProgressStatus `db:"status" json:"status"`
	Description        string         `db:"description" json:"description"`
	TechnicianID       *string        `db:"technician_id" json:"technician_id,omitempty"`
	ExternalTechnician *string        `db:"external_technician" json:"external_technician,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`

	Media []Locator `db:"-" json:"media"`
}

// After reports whether p was created after other in ledger order
func (p *Progress) After(other *Progress) bool {
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.After(other.CreatedAt)
	}
	return p.Seq > other.Seq
}

// ProgressView is a progress entry with its technician display name
type ProgressView struct {
	Progress
	TechnicianName *string `db:"technician_name" json:"technician_name"`
}
