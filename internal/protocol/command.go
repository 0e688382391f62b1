// Package protocol implements the line-oriented command protocol: one
// command per line in, one ACK/ERROR line out.
package protocol

import (
	"errors"
	"strings"

	"irrigation_controller/internal/control"
)

// Command is a recognized protocol keyword. Matching is case-sensitive.
type Command string

const (
	CmdPumpOn  Command = "PUMP_ON"
	CmdPumpOff Command = "PUMP_OFF"
	CmdAuto    Command = "AUTO_MODE"
	CmdStatus  Command = "STATUS"
)

// ErrEmptyLine is returned for blank lines, which get no response.
var ErrEmptyLine = errors.New("empty command line")

// ProtocolError reports an unrecognized command. It never changes state.
type ProtocolError struct {
	Line string
}

func (e *ProtocolError) Error() string { return "Unknown command: " + e.Line }

// Parse trims surrounding whitespace and recognizes the command keyword.
func Parse(line string) (Command, error) {
	text := strings.TrimSpace(line)
	switch Command(text) {
	case CmdPumpOn, CmdPumpOff, CmdAuto, CmdStatus:
		return Command(text), nil
	}
	if text == "" {
		return "", ErrEmptyLine
	}
	return "", &ProtocolError{Line: text}
}

// event maps mode-changing commands onto state machine events.
func (c Command) event() (control.Event, bool) {
	switch c {
	case CmdPumpOn:
		return control.EventPumpOn, true
	case CmdPumpOff:
		return control.EventPumpOff, true
	case CmdAuto:
		return control.EventAuto, true
	default:
		return 0, false
	}
}
