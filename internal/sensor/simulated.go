package sensor

import (
	"errors"
	"math"
	"math/rand"
	"sync"
)

var errThermalOffline = errors.New("climate probe offline")

// SimulatorParams shapes the host-side soil and climate simulation.
type SimulatorParams struct {
	InitialPct   int     // starting soil moisture
	DryRatePct   float64 // moisture lost per read while idle
	WetRatePct   float64 // moisture gained per read while watering
	NoiseRaw     float64 // peak ADC noise in raw counts
	AmbientC     float64
	AmbientRH    float64
	ThermalReady bool // false simulates a missing climate probe
	SoilAttached bool // false simulates a disconnected soil probe
}

// DefaultSimulatorParams returns a slowly drying bed with both probes attached.
func DefaultSimulatorParams() SimulatorParams {
	return SimulatorParams{
		InitialPct:   55,
		DryRatePct:   0.8,
		WetRatePct:   4,
		NoiseRaw:     6,
		AmbientC:     24,
		AmbientRH:    58,
		ThermalReady: true,
		SoilAttached: true,
	}
}

// SimulatedReader is a Reader for running the controller without hardware.
// Soil moisture drifts dry and recovers while watering() reports true.
type SimulatedReader struct {
	mu       sync.Mutex
	cal      Calibration
	p        SimulatorParams
	pct      float64
	rnd      *rand.Rand
	watering func() bool
}

// NewSimulatedReader builds a simulator. watering may be nil.
func NewSimulatedReader(cal Calibration, p SimulatorParams, rnd *rand.Rand, watering func() bool) *SimulatedReader {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(7))
	}
	return &SimulatedReader{
		cal:      cal,
		p:        p,
		pct:      float64(clampPct(p.InitialPct)),
		rnd:      rnd,
		watering: watering,
	}
}

// SetSoilAttached connects or disconnects the simulated soil probe.
func (s *SimulatedReader) SetSoilAttached(v bool) {
	s.mu.Lock()
	s.p.SoilAttached = v
	s.mu.Unlock()
}

// SetThermalReady toggles the simulated climate probe.
func (s *SimulatedReader) SetThermalReady(v bool) {
	s.mu.Lock()
	s.p.ThermalReady = v
	s.mu.Unlock()
}

func (s *SimulatedReader) ReadTemperatureHumidity() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.p.ThermalReady {
		return math.NaN(), math.NaN(), errThermalOffline
	}
	t := s.p.AmbientC + (s.rnd.Float64()-0.5)*0.6
	h := s.p.AmbientRH + (s.rnd.Float64()-0.5)*2
	return round1(t), round1(h), nil
}

func (s *SimulatedReader) ReadSoilRaw() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watering != nil && s.watering() {
		s.pct += s.p.WetRatePct
	} else {
		s.pct -= s.p.DryRatePct
	}
	s.pct = math.Max(0, math.Min(100, s.pct))

	if !s.p.SoilAttached {
		// a floating ADC input reads near the rail
		return 0
	}
	raw := float64(s.cal.DryRaw) + s.pct/100*float64(s.cal.WetRaw-s.cal.DryRaw)
	raw += (s.rnd.Float64()*2 - 1) * s.p.NoiseRaw
	return int(math.Round(raw))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
