// Package control implements the AUTO/MANUAL mode state machine.
//
// Step and Apply are pure functions of (policy, state, input, now); Machine
// owns the state and drives the pump actuator with their results.
package control

import (
	"time"

	"irrigation_controller/internal/models"
)

// Event is an explicit mode/pump request from the command protocol.
type Event int

const (
	EventPumpOn Event = iota + 1
	EventPumpOff
	EventAuto
)

func (e Event) String() string {
	switch e {
	case EventPumpOn:
		return "PUMP_ON"
	case EventPumpOff:
		return "PUMP_OFF"
	case EventAuto:
		return "AUTO_MODE"
	default:
		return "UNKNOWN"
	}
}

// Action describes what a transition requires of the pump.
type Action struct {
	SetPump bool // when false the pump output is left untouched
	PumpOn  bool
	Expired bool // the manual override deadline passed on this step
}

// InitialState is the start-up state: MANUAL without a deadline, so nothing
// actuates autonomously until a supervisor enables AUTO.
func InitialState() models.ControlState {
	return models.ControlState{Mode: models.ModeManual}
}

// Step runs the per-tick logic: the timeout check first, then the auto decision.
// Expiry fires only when now is strictly after the deadline, and only when a
// tick runs, so enforcement is delayed by at most one tick period.
func Step(p Policy, s models.ControlState, soilPct int, now time.Time) (models.ControlState, Action) {
	var act Action
	if s.Mode == models.ModeManual && s.HasDeadline() && now.After(s.ManualDeadline) {
		s = models.ControlState{Mode: models.ModeAuto}
		act.Expired = true
	}
	if s.Mode == models.ModeAuto {
		act.SetPump = true
		act.PumpOn = soilPct < p.ActivationThreshold
	}
	return s, act
}

// Apply handles an explicit command. Pump commands always (re)arm the deadline.
// AUTO_MODE clears it and leaves the pump for the next tick to decide.
func Apply(p Policy, s models.ControlState, ev Event, now time.Time) (models.ControlState, Action) {
	switch ev {
	case EventPumpOn, EventPumpOff:
		next := models.ControlState{
			Mode:           models.ModeManual,
			ManualDeadline: now.Add(p.OverrideDuration),
		}
		return next, Action{SetPump: true, PumpOn: ev == EventPumpOn}
	case EventAuto:
		return models.ControlState{Mode: models.ModeAuto}, Action{}
	default:
		return s, Action{}
	}
}
