package telemetry

import (
	"encoding/json"
	"fmt"
	"io"

	"irrigation_controller/internal/models"
)

// Level prefixes a diagnostic line.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
)

// Publisher writes records, diagnostics and protocol responses to the outbound channel.
// Every write is a single line issued with one Write call.
type Publisher struct {
	w         io.Writer
	nutrients *Nutrients
}

// NewPublisher writes to w. nutrients may be nil to omit the NPK fields.
func NewPublisher(w io.Writer, nutrients *Nutrients) *Publisher {
	return &Publisher{w: w, nutrients: nutrients}
}

// Publish emits the telemetry record for this tick.
func (p *Publisher) Publish(r models.Reading, pumpOn bool) (Record, error) {
	rec := NewRecord(r, pumpOn, p.nutrients)
	b, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("encode telemetry: %w", err)
	}
	return rec, p.write(b)
}

// Diagnostic emits a human-readable line such as "WARNING: ...".
func (p *Publisher) Diagnostic(level Level, msg string) error {
	return p.write([]byte(string(level) + ": " + msg))
}

// Line emits a raw protocol line (ACK/ERROR responses).
func (p *Publisher) Line(s string) error {
	return p.write([]byte(s))
}

func (p *Publisher) write(b []byte) error {
	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, b...)
	buf = append(buf, '\n')
	_, err := p.w.Write(buf)
	return err
}
