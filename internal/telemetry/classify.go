package telemetry

import (
	"encoding/json"
	"strings"
)

// Kind classifies a line read from the controller's outbound channel.
type Kind int

const (
	KindOther Kind = iota
	KindRecord
	KindAck
	KindError
	KindDiagnostic
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindAck:
		return "ack"
	case KindError:
		return "error"
	case KindDiagnostic:
		return "diagnostic"
	default:
		return "other"
	}
}

// Line is a classified outbound line.
type Line struct {
	Kind   Kind
	Text   string
	Record Record // set when Kind == KindRecord
}

// wireRecord uses pointers so missing keys can be told apart from zero values.
type wireRecord struct {
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	SoilMoisture    *int     `json:"soil_moisture"`
	SoilMoistureRaw *int     `json:"soil_moisture_raw"`
	PumpCommand     *string  `json:"pump_command"`
	*Nutrients
}

// Classify decodes one line. Only lines that decode as a complete record are
// reported as KindRecord; every other line is free text.
func Classify(raw string) Line {
	text := strings.TrimSpace(raw)
	l := Line{Kind: KindOther, Text: text}
	switch {
	case strings.HasPrefix(text, "{"):
		if rec, ok := decodeRecord(text); ok {
			l.Kind = KindRecord
			l.Record = rec
		}
	case strings.HasPrefix(text, "ACK:"):
		l.Kind = KindAck
	case strings.HasPrefix(text, "ERROR:"):
		l.Kind = KindError
	case strings.HasPrefix(text, string(LevelWarning)+":"), strings.HasPrefix(text, string(LevelInfo)+":"):
		l.Kind = KindDiagnostic
	}
	return l
}

func decodeRecord(text string) (Record, bool) {
	var w wireRecord
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return Record{}, false
	}
	if w.Temperature == nil || w.Humidity == nil || w.SoilMoisture == nil ||
		w.SoilMoistureRaw == nil || w.PumpCommand == nil {
		return Record{}, false
	}
	if *w.PumpCommand != "PUMP_ON" && *w.PumpCommand != "PUMP_OFF" {
		return Record{}, false
	}
	return Record{
		Temperature:     *w.Temperature,
		Humidity:        *w.Humidity,
		SoilMoisture:    *w.SoilMoisture,
		SoilMoistureRaw: *w.SoilMoistureRaw,
		PumpCommand:     *w.PumpCommand,
		Nutrients:       w.Nutrients,
	}, true
}
