package service

import (
	"context"

	"irrigation_controller/internal/pump"
	"irrigation_controller/internal/repository"
	"irrigation_controller/internal/telemetry"
)

type MonitoringService struct {
	link         ControllerLink
	snapshotRepo repository.SnapshotRepo
}

func NewMonitoringService(ln ControllerLink, snapshotRepo repository.SnapshotRepo) *MonitoringService {
	return &MonitoringService{link: ln, snapshotRepo: snapshotRepo}
}

// GetStatus prefers the live link. While the controller is silent it falls
// back to the persisted snapshot, marked as such.
func (s *MonitoringService) GetStatus(ctx context.Context) (Status, error) {
	snap, err := s.snapshotRepo.Load(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{Source: SourceNone, Faults: []string{}}
	if sample, ok := s.link.Latest(); ok {
		rec := sample.Record
		st.Connected = s.link.Connected()
		st.Source = SourceLive
		st.PumpOn = rec.PumpOn()
		st.LastRecord = &rec
		st.LastSeen = sample.ReceivedAt.UTC()
		st.Mode = snap.Mode
		if ps, known := s.link.Status(); known {
			st.Mode = ps.Mode
		}
		if snap.Faults != nil {
			st.Faults = snap.Faults
		}
		return st, nil
	}

	if snap.ID == 0 {
		return st, nil
	}
	st.Source = SourceSnapshot
	st.Mode = snap.Mode
	st.PumpOn = snap.PumpOn
	st.LastSeen = snap.UpdatedAt.UTC()
	st.LastRecord = &telemetry.Record{
		Temperature:     snap.TemperatureC,
		Humidity:        snap.HumidityPct,
		SoilMoisture:    snap.SoilPct,
		SoilMoistureRaw: snap.SoilRaw,
		PumpCommand:     pump.Command(snap.PumpOn),
	}
	if snap.Faults != nil {
		st.Faults = snap.Faults
	}
	return st, nil
}

func (s *MonitoringService) Subscribe(buffer int) (<-chan telemetry.Line, func()) {
	return s.link.Subscribe(buffer)
}
