package service

import (
	"context"
	"fmt"
	"strings"

	"irrigation_controller/internal/models"
	"irrigation_controller/internal/repository"
)

// EventLogService reads the controller journal.
type EventLogService struct {
	journal repository.EventRepo
}

func NewEventLogService(journal repository.EventRepo) *EventLogService {
	return &EventLogService{journal: journal}
}

// filterError marks a rejected LogFilter so handlers can answer 400.
type filterError struct{ msg string }

func (e *filterError) Error() string { return e.msg }

// IsInvalidFilter reports whether err comes from filter validation.
func IsInvalidFilter(err error) bool {
	_, ok := err.(*filterError)
	return ok
}

var journalTypes = []string{
	models.EventTelemetry,
	models.EventCommand,
	models.EventDiagnostic,
	models.EventConnection,
}

// normalized returns f with UTC bounds and an upper-case type.
func (f LogFilter) normalized() (LogFilter, error) {
	if !f.From.IsZero() {
		f.From = f.From.UTC()
	}
	if !f.To.IsZero() {
		f.To = f.To.UTC()
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, &filterError{"invalid time range: from must be <= to"}
	}

	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if f.Type == "" {
		return f, nil
	}
	for _, t := range journalTypes {
		if f.Type == t {
			return f, nil
		}
	}
	return LogFilter{}, &filterError{fmt.Sprintf("invalid type %q: must be one of %s", f.Type, strings.Join(journalTypes, ", "))}
}

// List returns journal entries matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error) {
	f, err := f.normalized()
	if err != nil {
		return nil, err
	}
	events, err := s.journal.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return events, nil
}
