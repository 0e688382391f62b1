package models

import "time"

// Journal event types.
const (
	EventTelemetry  = "TELEMETRY"
	EventCommand    = "COMMAND"
	EventDiagnostic = "DIAGNOSTIC"
	EventConnection = "CONNECTION"
)

// ControllerEvent is a single supervisor journal entry.
type ControllerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // TELEMETRY | COMMAND | DIAGNOSTIC | CONNECTION
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
