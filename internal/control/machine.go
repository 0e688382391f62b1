package control

import (
	"time"

	"irrigation_controller/internal/models"
	"irrigation_controller/internal/pump"
)

// Machine owns the ControlState and is the only writer of the pump in
// response to mode logic. It is driven from a single tick loop and is not
// safe for concurrent use.
type Machine struct {
	policy Policy
	state  models.ControlState
	pump   pump.Actuator
}

// NewMachine starts in the fail-safe MANUAL state.
func NewMachine(p Policy, a pump.Actuator) *Machine {
	return &Machine{policy: p, state: InitialState(), pump: a}
}

func (m *Machine) Policy() Policy { return m.policy }

func (m *Machine) State() models.ControlState { return m.state }

// PumpOn reads the pump level through the actuator.
func (m *Machine) PumpOn() bool { return m.pump.Get() }

// Tick applies the timeout check and the auto decision for one reading.
func (m *Machine) Tick(r models.Reading, now time.Time) Action {
	next, act := Step(m.policy, m.state, r.SoilPct, now)
	m.commit(next, act)
	return act
}

// Command applies an explicit protocol command.
func (m *Machine) Command(ev Event, now time.Time) Action {
	next, act := Apply(m.policy, m.state, ev, now)
	m.commit(next, act)
	return act
}

func (m *Machine) commit(next models.ControlState, act Action) {
	m.state = next
	if act.SetPump {
		m.pump.Set(act.PumpOn)
	}
}
