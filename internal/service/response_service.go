package service

import (
	"time"

	"irrigation_controller/internal/models"
	"irrigation_controller/internal/telemetry"
)

// CommandResult is what the controller answered to an operator command.
type CommandResult struct {
	Command  string      `json:"command"`
	Response string      `json:"response"`
	PumpOn   bool        `json:"pump_on"`
	Mode     models.Mode `json:"mode,omitempty"`
}

// Status sources.
const (
	SourceLive     = "live"
	SourceSnapshot = "snapshot"
	SourceNone     = "none"
)

// Status is the operator view of the controller.
type Status struct {
	Connected  bool              `json:"connected"`
	Source     string            `json:"source"` // live | snapshot | none
	Mode       models.Mode       `json:"mode,omitempty"`
	PumpOn     bool              `json:"pump_on"`
	Faults     []string          `json:"faults"`
	LastRecord *telemetry.Record `json:"last_record,omitempty"`
	LastSeen   time.Time         `json:"last_seen,omitempty"`
}

// LogFilter selects journal entries by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", TELEMETRY, COMMAND, DIAGNOSTIC, CONNECTION
}
