// Package pump holds the pump actuator port and its implementations.
// The controller never caches the pump level: every read goes through Get.
package pump

import "sync"

// Actuator wraps the single digital output driving the pump relay.
type Actuator interface {
	// Set commands the pump level. It is idempotent and cannot fail.
	Set(on bool)
	// Get reports the last commanded level.
	Get() bool
}

// Relay is an in-memory actuator modelling a relay with selectable wiring.
type Relay struct {
	mu        sync.RWMutex
	on        bool
	activeLow bool
}

// NewRelay returns a relay that starts OFF.
func NewRelay(activeLow bool) *Relay {
	return &Relay{activeLow: activeLow}
}

func (r *Relay) Set(on bool) {
	r.mu.Lock()
	r.on = on
	r.mu.Unlock()
}

func (r *Relay) Get() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.on
}

// Level returns the electrical level on the relay input pin.
func (r *Relay) Level() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.on != r.activeLow
}

// Label renders a pump level the way the line protocol does.
func Label(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// Command renders a pump level as a telemetry pump_command value.
func Command(on bool) string {
	if on {
		return "PUMP_ON"
	}
	return "PUMP_OFF"
}
