package entity

// ProgressStatus is the label of a progress entry
type ProgressStatus string

const (
	StatusIncoming                  ProgressStatus = "Incoming"
	StatusPending                   ProgressStatus = "Pending"
	StatusPendingAwaitingTools      ProgressStatus = "Pending - Awaiting Tools"
	StatusPendingAwaitingComponents ProgressStatus = "Pending - Awaiting Components"
	StatusPendingExternalTechnician ProgressStatus = "Pending - Needs External Technician"
	StatusTechnicianReassigned      ProgressStatus = "Technician Reassigned"
	StatusUnrepairable              ProgressStatus = "Unrepairable"
	StatusAwaitingReplacement       ProgressStatus = "Awaiting Replacement"
	StatusInProgress                ProgressStatus = "In Progress"
	StatusDone                      ProgressStatus = "Done"
)

var progressStatuses = []ProgressStatus{
	StatusIncoming,
	StatusPending,
	StatusPendingAwaitingTools,
	StatusPendingAwaitingComponents,
	StatusPendingExternalTechnician,
	StatusTechnicianReassigned,
	StatusUnrepairable,
	StatusAwaitingReplacement,
	StatusInProgress,
	StatusDone,
}

// ProgressStatuses returns every accepted status label
func ProgressStatuses() []ProgressStatus {
	out := make([]ProgressStatus, len(progressStatuses))
	copy(out, progressStatuses)
	return out
}

// IsValid reports whether s is one of the accepted labels
func (s ProgressStatus) IsValid() bool {
	for _, known := range progressStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority of a report
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Location kind of a report
type Location string

const (
	LocationInRoom  Location = "In Room"
	LocationOutRoom Location = "Out Room"
)

func (l Location) IsValid() bool {
	return l == LocationInRoom || l == LocationOutRoom
}
