package service

import (
	"context"
	"sync"
	"time"

	"irrigation_controller/internal/link"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/telemetry"
)

var testLog = logger.Get(logger.ErrorLevel)

// stubLink is an in-memory ControllerLink.
type stubLink struct {
	mu        sync.Mutex
	sent      []string
	reply     string
	sendErr   error
	sample    *link.Sample
	connected bool
	status    protocol.Status
	known     bool
	lines     chan telemetry.Line
}

func (s *stubLink) Send(_ context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
	return s.reply, s.sendErr
}

func (s *stubLink) Latest() (link.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sample == nil {
		return link.Sample{}, false
	}
	return *s.sample, true
}

func (s *stubLink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubLink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *stubLink) Status() (protocol.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.known
}

func (s *stubLink) Subscribe(int) (<-chan telemetry.Line, func()) {
	if s.lines == nil {
		s.lines = make(chan telemetry.Line, 16)
	}
	return s.lines, func() {}
}

// journal records appended events.
type journal struct {
	mu        sync.Mutex
	events    []models.ControllerEvent
	appendErr error
}

func (j *journal) Append(_ context.Context, e models.ControllerEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return j.appendErr
}

func (j *journal) List(context.Context, time.Time, time.Time, string) ([]models.ControllerEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]models.ControllerEvent(nil), j.events...), nil
}

func (j *journal) ofType(typ string) []models.ControllerEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []models.ControllerEvent
	for _, e := range j.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type snapshotStore struct {
	mu      sync.Mutex
	snap    models.ControllerSnapshot
	saved   []models.ControllerSnapshot
	loadErr error
}

func (s *snapshotStore) Save(_ context.Context, snap models.ControllerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ID = 1
	s.snap = snap
	s.saved = append(s.saved, snap)
	return nil
}

func (s *snapshotStore) Load(context.Context) (models.ControllerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.loadErr
}

func (s *snapshotStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
