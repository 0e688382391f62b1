package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"irrigation_controller/internal/models"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

const (
	snapshotRowID = 1

	upsertSnapshotSQL = `
		INSERT INTO controller_snapshot (id, mode, pump_on, soil_pct, soil_raw, temp_c, humidity, faults, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			pump_on=excluded.pump_on,
			soil_pct=excluded.soil_pct,
			soil_raw=excluded.soil_raw,
			temp_c=excluded.temp_c,
			humidity=excluded.humidity,
			faults=excluded.faults,
			updated_at=excluded.updated_at
	`

	selectSnapshotSQL = `
		SELECT id, mode, pump_on, soil_pct, soil_raw, temp_c, humidity, faults, updated_at
		FROM controller_snapshot WHERE id=?
	`
)

func marshalFaults(codes []string) (string, error) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalFaults(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Save upserts the single snapshot row. A zero UpdatedAt is stamped with now.
func (r *SnapshotSQLite) Save(ctx context.Context, s models.ControllerSnapshot) error {
	faults, err := marshalFaults(s.Faults)
	if err != nil {
		return fmt.Errorf("encode faults: %w", err)
	}

	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = r.db.ExecContext(ctx, upsertSnapshotSQL,
		snapshotRowID,
		string(s.Mode),
		s.PumpOn,
		s.SoilPct,
		s.SoilRaw,
		s.TemperatureC,
		s.HumidityPct,
		faults,
		ts.UTC().Format(sqliteTimestamp),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot, or the zero value if none was saved yet.
func (r *SnapshotSQLite) Load(ctx context.Context) (models.ControllerSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSnapshotSQL, snapshotRowID)

	var (
		s      models.ControllerSnapshot
		mode   string
		faults string
		at     string
	)
	if err := row.Scan(&s.ID, &mode, &s.PumpOn, &s.SoilPct, &s.SoilRaw,
		&s.TemperatureC, &s.HumidityPct, &faults, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ControllerSnapshot{}, nil
		}
		return models.ControllerSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	codes, err := unmarshalFaults(faults)
	if err != nil {
		return models.ControllerSnapshot{}, fmt.Errorf("decode faults: %w", err)
	}
	s.Faults = codes
	s.Mode = models.Mode(mode)
	s.UpdatedAt, err = time.ParseInLocation(sqliteTimestamp, at, time.UTC)
	if err != nil {
		return models.ControllerSnapshot{}, fmt.Errorf("parse updated_at %q: %w", at, err)
	}
	return s, nil
}
