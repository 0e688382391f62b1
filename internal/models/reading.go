package models

import "strings"

// SensorFault flags which sensor readings were substituted during a tick.
// It is a bit set so a tick where both sensors fail reports both.
type SensorFault uint8

const (
	FaultNone    SensorFault = 0
	FaultThermal SensorFault = 1 << 0
	FaultSoil    SensorFault = 1 << 1
)

// Has reports whether all bits of f are set.
func (s SensorFault) Has(f SensorFault) bool {
	return f != FaultNone && s&f == f
}

// Codes lists the set faults as stable identifiers.
func (s SensorFault) Codes() []string {
	codes := []string{}
	if s.Has(FaultThermal) {
		codes = append(codes, "thermal_fault")
	}
	if s.Has(FaultSoil) {
		codes = append(codes, "soil_fault")
	}
	return codes
}

func (s SensorFault) String() string {
	if s == FaultNone {
		return "none"
	}
	return strings.Join(s.Codes(), "|")
}

// Reading is the normalized sample produced once per tick.
// SoilPct is always in [0,100]; faulted fields carry fallback values.
type Reading struct {
	TemperatureC float64     `json:"temperature_c"`
	HumidityPct  float64     `json:"humidity_pct"`
	SoilRaw      int         `json:"soil_raw"`
	SoilPct      int         `json:"soil_pct"`
	Fault        SensorFault `json:"sensor_fault"`
}
