package telemetry

import (
	"fmt"
	"strings"
	"time"

	"irrigation_controller/internal/models"
)

const (
	soilFaultNotice    = "Soil moisture sensor reading unusual (possibly disconnected)"
	thermalFaultNotice = "DHT sensor not connected, using demo data"
	expiryNotice       = "Returning to automatic mode after"
)

// SoilFaultNotice is the WARNING text for a disconnected soil probe.
func SoilFaultNotice(fallbackPct int) string {
	return fmt.Sprintf("%s, using %d%%", soilFaultNotice, fallbackPct)
}

// ThermalFaultNotice is the WARNING text for a missing climate probe.
func ThermalFaultNotice() string { return thermalFaultNotice }

// ExpiryNotice is the INFO text emitted when a manual override times out.
// Whole minutes are written as "5 minute".
func ExpiryNotice(d time.Duration) string {
	var human string
	if d >= time.Minute && d%time.Minute == 0 {
		human = fmt.Sprintf("%d minute", int(d/time.Minute))
	} else {
		human = d.String()
	}
	return fmt.Sprintf("%s %s timeout", expiryNotice, human)
}

// FaultOf maps a diagnostic line back to the sensor fault it reports.
func FaultOf(l Line) models.SensorFault {
	if l.Kind != KindDiagnostic {
		return models.FaultNone
	}
	body := strings.TrimPrefix(l.Text, string(LevelWarning)+": ")
	switch {
	case strings.HasPrefix(body, soilFaultNotice):
		return models.FaultSoil
	case strings.HasPrefix(body, thermalFaultNotice):
		return models.FaultThermal
	default:
		return models.FaultNone
	}
}

// IsExpiry reports whether l announces a manual override timeout.
func IsExpiry(l Line) bool {
	return l.Kind == KindDiagnostic && strings.HasPrefix(l.Text, string(LevelInfo)+": "+expiryNotice)
}
