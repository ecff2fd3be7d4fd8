package ledger

import (
	"context"
	"time"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// Event types published after a committed ledger change
const (
	EventProgressAdded         = "progress.added"
	EventProgressDeleted       = "progress.deleted"
	EventProgressStatusUpdated = "progress.status_updated"
)

const publishTimeout = 5 * time.Second

// Event is the body of a ledger notification
type Event struct {
	Type              string                `json:"type"`
	ReportID          string                `json:"report_id"`
	ProgressIDs       []string              `json:"progress_ids,omitempty"`
	Status            entity.ProgressStatus `json:"status,omitempty"`
	CurrentProgressID *string               `json:"current_progress_id"`
	OccurredAt        time.Time             `json:"occurred_at"`
}

func newEvent(eventType, reportID string, at time.Time) *Event {
	return &Event{Type: eventType, ReportID: reportID, OccurredAt: at}
}

func (e *Event) withProgress(ids ...string) *Event {
	e.ProgressIDs = append(e.ProgressIDs, ids...)
	return e
}

func (e *Event) withStatus(status entity.ProgressStatus) *Event {
	e.Status = status
	return e
}

func (e *Event) withCurrent(id *string) *Event {
	e.CurrentProgressID = id
	return e
}

// publish sends the event when a queue is configured. The change it describes
// is already committed, so failures are only logged and counted.
func (m *Manager) publish(ctx context.Context, event *Event) {
	if m.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := m.events.Publish(ctx, &ports.QueueMessage{Target: m.eventTarget, Body: event})
	if err != nil {
		m.logger.Error("failed to publish ledger event",
			"error", err,
			"type", event.Type,
			"report_id", event.ReportID)
		m.metrics.IncrementCounter("ledger.event.publish_failed", map[string]string{"type": event.Type})
		return
	}
	m.metrics.IncrementCounter("ledger.event.published", map[string]string{"type": event.Type})
}
