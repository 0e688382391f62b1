//go:build tinygo

package pump

import "machine"

// PinRelay drives the pump relay from a GPIO output.
type PinRelay struct {
	pin       machine.Pin
	activeLow bool
	on        bool
}

// NewPinRelay configures pin as an output and switches the pump OFF.
func NewPinRelay(pin machine.Pin, activeLow bool) *PinRelay {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r := &PinRelay{pin: pin, activeLow: activeLow}
	r.Set(false)
	return r
}

func (r *PinRelay) Set(on bool) {
	r.on = on
	r.pin.Set(on != r.activeLow)
}

func (r *PinRelay) Get() bool { return r.on }
