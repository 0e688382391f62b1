// Package broker forwards telemetry records to message brokers.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"irrigation_controller/internal/telemetry"
)

// Sink receives every telemetry record the supervisor accepts.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Envelope is the broker payload: the record plus where and when it was seen.
type Envelope struct {
	DeviceID   string           `json:"device_id"`
	ReceivedAt time.Time        `json:"received_at"`
	Record     telemetry.Record `json:"record"`
}

func (e Envelope) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
