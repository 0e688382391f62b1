package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/repository"
)

// ErrInvalidAction is returned for actions other than on, off, auto and status.
var ErrInvalidAction = errors.New("invalid action: must be on, off, auto or status")

var actionCommands = map[string]protocol.Command{
	"on":     protocol.CmdPumpOn,
	"off":    protocol.CmdPumpOff,
	"auto":   protocol.CmdAuto,
	"status": protocol.CmdStatus,
}

type PumpService struct {
	link      ControllerLink
	eventRepo repository.EventRepo
	log       *logger.Logger
	now       func() time.Time
}

func NewPumpService(ln ControllerLink, eventRepo repository.EventRepo, log *logger.Logger) *PumpService {
	return &PumpService{link: ln, eventRepo: eventRepo, log: log, now: time.Now}
}

// Command sends the protocol line for action and journals the exchange,
// including failed ones. A journal write failure does not fail the command.
func (s *PumpService) Command(ctx context.Context, action string) (CommandResult, error) {
	cmd, ok := actionCommands[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return CommandResult{}, ErrInvalidAction
	}

	res := CommandResult{Command: string(cmd)}
	resp, sendErr := s.link.Send(ctx, string(cmd))
	res.Response = resp

	meta := map[string]any{"response": resp}
	if sendErr != nil {
		meta["error"] = sendErr.Error()
	}
	if err := s.eventRepo.Append(ctx, models.ControllerEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.now().UTC(),
		Type:        models.EventCommand,
		Description: string(cmd),
		Metadata:    meta,
	}); err != nil {
		s.log.Errorw("journal_command_failed", "command", cmd, "err", err)
	}

	if sendErr != nil {
		return res, fmt.Errorf("%s: %w", cmd, sendErr)
	}
	if st, ok := protocol.ParseResponse(resp); ok {
		res.PumpOn, res.Mode = st.PumpOn, st.Mode
	}
	return res, nil
}
