package protocol

import (
	"errors"
	"regexp"
	"strings"

	"irrigation_controller/internal/models"
	"irrigation_controller/internal/pump"
)

// Response line prefixes, one per command family.
const (
	ackTurned   = "ACK: Pump turned "
	ackSwitched = "ACK: Switched to automatic mode, "
	ackIs       = "ACK: Pump is "
	errorPrefix = "ERROR: "
)

var (
	pumpLevelRe = regexp.MustCompile(`Pump (?:is|turned) (ON|OFF)`)
	modeRe      = regexp.MustCompile(`Mode: (AUTO|MANUAL)`)
)

// Status is the controller state reported by an ACK line.
type Status struct {
	PumpOn bool
	Mode   models.Mode
}

// ParseResponse extracts pump level and mode from an ACK line.
func ParseResponse(line string) (Status, bool) {
	text := strings.TrimSpace(line)
	if !strings.HasPrefix(text, "ACK:") {
		return Status{}, false
	}
	lvl := pumpLevelRe.FindStringSubmatch(text)
	mode := modeRe.FindStringSubmatch(text)
	if lvl == nil || mode == nil {
		return Status{}, false
	}
	return Status{PumpOn: lvl[1] == "ON", Mode: models.Mode(mode[1])}, true
}

// Answers reports whether reply has the shape the controller uses to answer
// command. Two answers to the same command are indistinguishable, so a late
// STATUS reply can still stand in for a fresh one; both carry current state.
func Answers(command, reply string) bool {
	text := strings.TrimSpace(reply)
	cmd, err := Parse(command)
	if err != nil {
		var perr *ProtocolError
		return errors.As(err, &perr) && text == errorPrefix+perr.Error()
	}
	switch cmd {
	case CmdPumpOn, CmdPumpOff:
		return strings.HasPrefix(text, ackTurned+pump.Label(cmd == CmdPumpOn)+",")
	case CmdAuto:
		return strings.HasPrefix(text, ackSwitched)
	default:
		return strings.HasPrefix(text, ackIs)
	}
}
