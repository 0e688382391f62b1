package sensor

import (
	"errors"
	"fmt"
	"math"
)

// Polarity states which end of the raw ADC range corresponds to dry soil.
// Field deployments disagree on this, so it is always configured explicitly.
type Polarity string

const (
	// PolarityDryLow: low raw values are dry, higher raw values are wetter.
	PolarityDryLow Polarity = "dry_low"
	// PolarityDryHigh: high raw values are dry, lower raw values are wetter.
	PolarityDryHigh Polarity = "dry_high"
)

// Defaults measured on the reference deployment (capacitive probe, 12-bit ADC).
// The guard bounds are the last valid readings: raw <= 2700 and raw >= 4090
// are faults. A probe pinned at the 4095 rail is a short, not saturated soil,
// so Sample reports the fallback there even though Percent(4095) is 100.
const (
	DefaultDryRaw      = 2800
	DefaultWetRaw      = 4095
	DefaultGuardLow    = 2701
	DefaultGuardHigh   = 4089
	DefaultFallbackPct = 35
)

var (
	errEqualCalibration = errors.New("calibration: dry_raw and wet_raw must differ")
	errGuardBand        = errors.New("calibration: guard_low must be below guard_high")
)

// Calibration maps raw soil readings into a moisture percentage.
//
// A raw value below GuardLow or above GuardHigh is treated as a disconnected
// probe. In that case the sampler reports FallbackPct, which must sit on the
// dry side of the pump activation threshold: a broken sensor fails toward
// irrigating, never toward silently starving the crop.
type Calibration struct {
	DryRaw      int
	WetRaw      int
	Polarity    Polarity
	GuardLow    int
	GuardHigh   int
	FallbackPct int
}

// DefaultCalibration returns the reference deployment calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		DryRaw:      DefaultDryRaw,
		WetRaw:      DefaultWetRaw,
		Polarity:    PolarityDryLow,
		GuardLow:    DefaultGuardLow,
		GuardHigh:   DefaultGuardHigh,
		FallbackPct: DefaultFallbackPct,
	}
}

// Validate checks that the calibration points agree with the declared polarity.
func (c Calibration) Validate() error {
	if c.DryRaw == c.WetRaw {
		return errEqualCalibration
	}
	switch c.Polarity {
	case PolarityDryLow:
		if c.DryRaw > c.WetRaw {
			return fmt.Errorf("calibration: polarity %s requires dry_raw (%d) < wet_raw (%d)", c.Polarity, c.DryRaw, c.WetRaw)
		}
	case PolarityDryHigh:
		if c.DryRaw < c.WetRaw {
			return fmt.Errorf("calibration: polarity %s requires dry_raw (%d) > wet_raw (%d)", c.Polarity, c.DryRaw, c.WetRaw)
		}
	default:
		return fmt.Errorf("calibration: unknown polarity %q (want %s or %s)", c.Polarity, PolarityDryLow, PolarityDryHigh)
	}
	if c.GuardLow >= c.GuardHigh {
		return errGuardBand
	}
	if c.FallbackPct < 0 || c.FallbackPct > 100 {
		return fmt.Errorf("calibration: fallback_pct %d outside [0,100]", c.FallbackPct)
	}
	return nil
}

// Percent interpolates raw linearly between DryRaw (0%) and WetRaw (100%),
// rounds to the nearest integer and clamps to [0,100].
func (c Calibration) Percent(raw int) int {
	span := c.WetRaw - c.DryRaw
	if span == 0 {
		return 0
	}
	pct := math.Round(float64(raw-c.DryRaw) * 100 / float64(span))
	return clampPct(int(pct))
}

// Disconnected reports whether raw falls in the disconnection guard band.
func (c Calibration) Disconnected(raw int) bool {
	return raw < c.GuardLow || raw > c.GuardHigh
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
