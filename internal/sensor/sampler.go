package sensor

import (
	"math"
	"math/rand"

	"irrigation_controller/internal/models"
)

// Reader is the hardware port for the climate and soil probes.
// A NaN value or a non-nil error from ReadTemperatureHumidity is a thermal fault.
type Reader interface {
	ReadTemperatureHumidity() (tempC, humidity float64, err error)
	ReadSoilRaw() int
}

// Demo band substituted when the climate probe is unavailable.
const (
	DemoTemperatureC      = 28.5
	DemoTemperatureSpread = 2.0 // 26.5..30.5 °C
	DemoHumidityPct       = 65.0
	DemoHumiditySpread    = 1.0 // 64..66 %
)

// Sampler turns raw probe reads into a normalized Reading.
type Sampler struct {
	reader Reader
	cal    Calibration
	rnd    *rand.Rand
}

// NewSampler builds a sampler. rnd drives the demo band and may be nil.
func NewSampler(reader Reader, cal Calibration, rnd *rand.Rand) *Sampler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Sampler{reader: reader, cal: cal, rnd: rnd}
}

// Calibration returns the active calibration.
func (s *Sampler) Calibration() Calibration { return s.cal }

// Sample reads both probes once. It keeps no state between calls, so a fault
// on this tick is decided from this tick's raw values only.
func (s *Sampler) Sample() models.Reading {
	var r models.Reading

	temp, hum, err := s.reader.ReadTemperatureHumidity()
	if err != nil || math.IsNaN(temp) || math.IsNaN(hum) {
		r.Fault |= models.FaultThermal
		temp = DemoTemperatureC + s.spread(DemoTemperatureSpread)
		hum = DemoHumidityPct + s.spread(DemoHumiditySpread)
	}
	r.TemperatureC = temp
	r.HumidityPct = hum

	r.SoilRaw = s.reader.ReadSoilRaw()
	if s.cal.Disconnected(r.SoilRaw) {
		// fail-safe: report slightly dry so a dead probe keeps irrigating
		r.Fault |= models.FaultSoil
		r.SoilPct = clampPct(s.cal.FallbackPct)
	} else {
		r.SoilPct = s.cal.Percent(r.SoilRaw)
	}
	return r
}

// spread returns a value in [-width, width).
func (s *Sampler) spread(width float64) float64 {
	return (s.rnd.Float64()*2 - 1) * width
}
