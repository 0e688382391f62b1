package models

import "time"

// ControllerSnapshot is the supervisor's last known view of the controller.
// Mode is empty until a command response has reported it.
type ControllerSnapshot struct {
	ID           int       `json:"-"`
	Mode         Mode      `json:"mode,omitempty"`
	PumpOn       bool      `json:"pump_on"`
	SoilPct      int       `json:"soil_pct"`
	SoilRaw      int       `json:"soil_raw"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	Faults       []string  `json:"faults"`
	UpdatedAt    time.Time `json:"updated_at"`
}
