package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"irrigation_controller/internal/broker"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/repository"
	"irrigation_controller/internal/telemetry"
)

const recorderBuffer = 64

// RecorderService journals every record and diagnostic line, keeps the
// snapshot current and forwards records to the broker sinks.
type RecorderService struct {
	link         ControllerLink
	eventRepo    repository.EventRepo
	snapshotRepo repository.SnapshotRepo
	sinks        broker.Sink
	deviceID     string
	checkEvery   time.Duration
	log          *logger.Logger
	now          func() time.Time

	faults    models.SensorFault // diagnostics seen since the last record
	connected bool
}

func NewRecorderService(ln ControllerLink, eventRepo repository.EventRepo, snapshotRepo repository.SnapshotRepo, d Deps) *RecorderService {
	sinks := d.Sinks
	if sinks == nil {
		sinks = broker.Fanout{}
	}
	checkEvery := d.CheckEvery
	if checkEvery <= 0 {
		checkEvery = time.Second
	}
	return &RecorderService{
		link:         ln,
		eventRepo:    eventRepo,
		snapshotRepo: snapshotRepo,
		sinks:        sinks,
		deviceID:     d.DeviceID,
		checkEvery:   checkEvery,
		log:          d.Log,
		now:          time.Now,
	}
}

// Run consumes the link until ctx is canceled or the controller stream ends.
func (s *RecorderService) Run(ctx context.Context) {
	lines, unsubscribe := s.link.Subscribe(recorderBuffer)
	defer unsubscribe()

	t := time.NewTicker(s.checkEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				s.checkConnection(ctx)
				return
			}
			s.handle(ctx, line)
		case <-t.C:
			s.checkConnection(ctx)
		}
	}
}

func (s *RecorderService) handle(ctx context.Context, line telemetry.Line) {
	now := s.now().UTC()
	switch line.Kind {
	case telemetry.KindDiagnostic:
		s.faults |= telemetry.FaultOf(line)
		s.append(ctx, models.ControllerEvent{
			OccurredAt:  now,
			Type:        models.EventDiagnostic,
			Description: line.Text,
		})
	case telemetry.KindRecord:
		s.record(ctx, line.Record, now)
	}
}

func (s *RecorderService) record(ctx context.Context, rec telemetry.Record, now time.Time) {
	s.append(ctx, models.ControllerEvent{
		OccurredAt:  now,
		Type:        models.EventTelemetry,
		Description: rec.PumpCommand,
		Metadata:    rec,
	})

	snap := models.ControllerSnapshot{
		PumpOn:       rec.PumpOn(),
		SoilPct:      rec.SoilMoisture,
		SoilRaw:      rec.SoilMoistureRaw,
		TemperatureC: rec.Temperature,
		HumidityPct:  rec.Humidity,
		Faults:       s.faults.Codes(),
		UpdatedAt:    now,
	}
	if st, known := s.link.Status(); known {
		snap.Mode = st.Mode
	}
	s.faults = models.FaultNone
	if err := s.snapshotRepo.Save(ctx, snap); err != nil {
		s.log.Errorw("snapshot_save_failed", "err", err)
	}

	env := broker.Envelope{DeviceID: s.deviceID, ReceivedAt: now, Record: rec}
	if err := s.sinks.Publish(ctx, env); err != nil {
		s.log.Warnw("broker_publish_failed", "err", err)
	}

	if !s.connected {
		s.checkConnection(ctx)
	}
}

// checkConnection journals transitions between a fresh and a silent controller.
func (s *RecorderService) checkConnection(ctx context.Context) {
	up := s.link.Connected()
	if up == s.connected {
		return
	}
	s.connected = up
	desc := "controller silent"
	if up {
		desc = "controller connected"
	}
	s.log.Infow("controller_connection", "connected", up)
	s.append(ctx, models.ControllerEvent{
		OccurredAt:  s.now().UTC(),
		Type:        models.EventConnection,
		Description: desc,
		Metadata:    map[string]any{"connected": up},
	})
}

func (s *RecorderService) append(ctx context.Context, e models.ControllerEvent) {
	e.EventID = uuid.NewString()
	if err := s.eventRepo.Append(ctx, e); err != nil {
		s.log.Errorw("journal_append_failed", "type", e.Type, "err", err)
	}
}
