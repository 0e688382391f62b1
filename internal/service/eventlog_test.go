package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"irrigation_controller/internal/models"
)

// queryRecorder captures the bounds handed to the journal.
type queryRecorder struct {
	from, to time.Time
	typ      string
	calls    int
	events   []models.ControllerEvent
	err      error
}

func (q *queryRecorder) List(_ context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error) {
	q.calls++
	q.from, q.to, q.typ = from, to, typ
	return q.events, q.err
}

func (q *queryRecorder) Append(context.Context, models.ControllerEvent) error { return nil }

func TestEventLogService_ListNormalizesFilter(t *testing.T) {
	plus3 := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2026, 5, 1, 9, 0, 0, 0, plus3)
	to := time.Date(2026, 5, 1, 18, 30, 0, 0, plus3)

	tests := []struct {
		name     string
		in       LogFilter
		wantFrom time.Time
		wantTo   time.Time
		wantType string
	}{
		{"no bounds", LogFilter{}, time.Time{}, time.Time{}, ""},
		{"zone converted to UTC", LogFilter{From: from, To: to}, from.UTC(), to.UTC(), ""},
		{"open upper bound", LogFilter{From: from}, from.UTC(), time.Time{}, ""},
		{"type case folded", LogFilter{Type: "  diagnostic "}, time.Time{}, time.Time{}, models.EventDiagnostic},
		{"equal bounds allowed", LogFilter{From: from, To: from, Type: "connection"}, from.UTC(), from.UTC(), models.EventConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queryRecorder{events: []models.ControllerEvent{{Type: models.EventTelemetry}}}
			got, err := NewEventLogService(q).List(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("events = %d, want 1", len(got))
			}
			if !q.from.Equal(tt.wantFrom) || !q.to.Equal(tt.wantTo) || q.typ != tt.wantType {
				t.Fatalf("query = (%v, %v, %q), want (%v, %v, %q)", q.from, q.to, q.typ, tt.wantFrom, tt.wantTo, tt.wantType)
			}
			if !q.from.IsZero() && q.from.Location() != time.UTC {
				t.Fatalf("from not in UTC: %v", q.from.Location())
			}
		})
	}
}

func TestEventLogService_RejectsBadFilter(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := map[string]LogFilter{
		"inverted range": {From: base, To: base.Add(-time.Second)},
		"unknown type":   {Type: "SENSOR"},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			q := &queryRecorder{}
			_, err := NewEventLogService(q).List(context.Background(), f)
			if !IsInvalidFilter(err) {
				t.Fatalf("err = %v, want filter error", err)
			}
			if q.calls != 0 {
				t.Fatal("journal queried for an invalid filter")
			}
		})
	}
}

func TestEventLogService_WrapsJournalError(t *testing.T) {
	boom := errors.New("disk I/O error")
	_, err := NewEventLogService(&queryRecorder{err: boom}).List(context.Background(), LogFilter{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if IsInvalidFilter(err) {
		t.Fatal("journal error classified as a filter error")
	}
}
