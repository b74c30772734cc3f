// Package queue carries availability change events over RabbitMQ: a
// publisher used by the availability service and an audit consumer that
// appends each event to a log file.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// WindowsChangedQueue is the durable queue change events are routed to.
const WindowsChangedQueue = "availability.changed"

// WindowsChangedEvent is published after a window mutation commits. It is
// self-contained so consumers never need to query the primary database.
type WindowsChangedEvent struct {
	EventID    string         `json:"event_id"`
	Kind       string         `json:"kind"`
	VendorID   uint64         `json:"vendor_id"`
	WindowID   uint64         `json:"window_id"`
	ActorID    uint64         `json:"actor_id"`
	Mode       string         `json:"mode"`
	Windows    []model.Window `json:"windows"`
	OccurredAt string         `json:"occurred_at"`
}

// NewWindowsChangedEvent builds the wire event for a committed change.
func NewWindowsChangedEvent(c availability.Change, at time.Time) WindowsChangedEvent {
	ws := c.Windows
	if ws == nil {
		ws = []model.Window{}
	}
	return WindowsChangedEvent{
		EventID:    uuid.NewString(),
		Kind:       string(c.Kind),
		VendorID:   c.VendorID,
		WindowID:   c.WindowID,
		ActorID:    c.ActorID,
		Mode:       c.Mode.String(),
		Windows:    ws,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
