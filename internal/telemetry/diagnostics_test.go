package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"irrigation_controller/internal/models"
)

func TestExpiryNotice(t *testing.T) {
	assert.Equal(t, "Returning to automatic mode after 5 minute timeout", ExpiryNotice(5*time.Minute))
	assert.Equal(t, "Returning to automatic mode after 1m30s timeout", ExpiryNotice(90*time.Second))
}

func TestFaultOf(t *testing.T) {
	cases := []struct {
		line string
		want models.SensorFault
	}{
		{"WARNING: " + SoilFaultNotice(35), models.FaultSoil},
		{"WARNING: " + ThermalFaultNotice(), models.FaultThermal},
		{"INFO: " + ExpiryNotice(time.Minute), models.FaultNone},
		{"ACK: Pump is ON, Mode: AUTO", models.FaultNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FaultOf(Classify(tc.line)), tc.line)
	}
}

func TestIsExpiry(t *testing.T) {
	assert.True(t, IsExpiry(Classify("INFO: "+ExpiryNotice(5*time.Minute))))
	assert.False(t, IsExpiry(Classify("WARNING: "+ThermalFaultNotice())))
}
