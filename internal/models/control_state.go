package models

import "time"

// Mode is the pump control mode.
type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeManual Mode = "MANUAL"
)

// ControlState is owned by the state machine. ManualDeadline is zero unless
// Mode is MANUAL and an override timeout is pending.
type ControlState struct {
	Mode           Mode      `json:"mode"`
	ManualDeadline time.Time `json:"manual_deadline,omitempty"`
}

// HasDeadline reports whether an override timeout is pending.
func (s ControlState) HasDeadline() bool {
	return !s.ManualDeadline.IsZero()
}
