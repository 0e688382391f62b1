package protocol

import (
	"errors"
	"fmt"
	"time"

	"irrigation_controller/internal/control"
	"irrigation_controller/internal/pump"
)

// Handler dispatches one command line to the state machine and renders the
// response. Pump levels in responses are read back through the actuator, so
// the supervisor can verify a command took effect without a second query.
type Handler struct {
	machine *control.Machine
}

func NewHandler(m *control.Machine) *Handler {
	return &Handler{machine: m}
}

// Handle processes a single line. ok is false for blank lines, which get no response.
func (h *Handler) Handle(line string, now time.Time) (response string, ok bool) {
	cmd, err := Parse(line)
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			return errorPrefix + perr.Error(), true
		}
		return "", false
	}

	if ev, isEvent := cmd.event(); isEvent {
		h.machine.Command(ev, now)
	}
	return h.render(cmd), true
}

func (h *Handler) render(cmd Command) string {
	level := pump.Label(h.machine.PumpOn())
	mode := h.machine.State().Mode
	switch cmd {
	case CmdPumpOn, CmdPumpOff:
		return fmt.Sprintf("%s%s, Mode: %s", ackTurned, level, mode)
	case CmdAuto:
		return fmt.Sprintf("%sPump is %s, Mode: %s", ackSwitched, level, mode)
	default:
		return fmt.Sprintf("%s%s, Mode: %s", ackIs, level, mode)
	}
}
