package entity

import "time"

// Report is a maintenance request submitted by an occupant
type Report struct {
	ID                string    `db:"id" json:"id"`
	Ticket            string    `db:"ticket" json:"ticket"`
	ReporterName      string    `db:"reporter_name" json:"reporter_name"`
	PhoneNumber       string    `db:"phone_number" json:"phone_number"`
	Location          Location  `db:"location" json:"location"`
	Room              string    `db:"room" json:"room"`
	Description       string    `db:"description" json:"description"`
	Priority          *Priority `db:"priority" json:"priority,omitempty"`
	TechnicianID      *string   `db:"technician_id" json:"technician_id,omitempty"`
	Latitude          *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude         *float64  `db:"longitude" json:"longitude,omitempty"`
	PhotoName         *string   `db:"photo_name" json:"-"`
	PhotoURL          *string   `db:"photo_url" json:"photo_url,omitempty"`
	CurrentProgressID *string   `db:"current_progress_id" json:"current_progress_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// ReportView is a report joined with display data for listings
type ReportView struct {
	Report
	TechnicianName *string         `db:"technician_name" json:"technician_name,omitempty"`
	CurrentStatus  *ProgressStatus `db:"current_status" json:"current_status,omitempty"`
}
