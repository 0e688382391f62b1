// Package telemetry encodes the per-tick telemetry record and the free-text
// diagnostic lines that share the outbound channel with it.
package telemetry

import (
	"math"

	"irrigation_controller/internal/models"
	"irrigation_controller/internal/pump"
)

// Nutrients are fixed defaults emitted when a deployment simulates an NPK probe.
type Nutrients struct {
	N        int     `json:"N"`
	P        int     `json:"P"`
	K        int     `json:"K"`
	Rainfall float64 `json:"rainfall"`
}

// DefaultNutrients are moderate levels suitable for most crops.
func DefaultNutrients() Nutrients {
	return Nutrients{N: 40, P: 30, K: 35, Rainfall: 0}
}

// Record is one telemetry line. Field order is part of the wire format.
type Record struct {
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	SoilMoisture    int     `json:"soil_moisture"`
	SoilMoistureRaw int     `json:"soil_moisture_raw"`
	PumpCommand     string  `json:"pump_command"`
	*Nutrients
}

// NewRecord builds the record for a reading and the pump level observed on the actuator.
func NewRecord(r models.Reading, pumpOn bool, nutrients *Nutrients) Record {
	rec := Record{
		Temperature:     round2(r.TemperatureC),
		Humidity:        round2(r.HumidityPct),
		SoilMoisture:    r.SoilPct,
		SoilMoistureRaw: r.SoilRaw,
		PumpCommand:     pump.Command(pumpOn),
	}
	if nutrients != nil {
		n := *nutrients
		rec.Nutrients = &n
	}
	return rec
}

// PumpOn reports whether the record says the pump is running.
func (r Record) PumpOn() bool { return r.PumpCommand == pump.Command(true) }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
