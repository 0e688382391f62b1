// Package deploy applies per-deployment overrides to the controller defaults.
// The firmware receives them as strings linked in with -ldflags -X, so every
// field is optional text and the result is validated as a whole.
package deploy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"irrigation_controller/internal/control"
	"irrigation_controller/internal/sensor"
)

// ErrFallbackNotDry mirrors the supervisor config rule: a disconnected probe
// must read below the activation threshold.
var ErrFallbackNotDry = errors.New("fallback_pct must be below activation_threshold")

// Settings is what a controller build runs with.
type Settings struct {
	Calibration sensor.Calibration
	Policy      control.Policy
	Tick        time.Duration
}

// Defaults returns the reference deployment settings.
func Defaults() Settings {
	return Settings{
		Calibration: sensor.DefaultCalibration(),
		Policy:      control.DefaultPolicy(),
		Tick:        5 * time.Second,
	}
}

// Overrides holds raw text values. Empty fields keep the base value.
type Overrides struct {
	DryRaw      string
	WetRaw      string
	Polarity    string
	GuardLow    string
	GuardHigh   string
	FallbackPct string
	Threshold   string
	Override    string
	Tick        string
}

// Apply parses o on top of base and validates the result.
func (o Overrides) Apply(base Settings) (Settings, error) {
	s := base
	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"dry_raw", o.DryRaw, &s.Calibration.DryRaw},
		{"wet_raw", o.WetRaw, &s.Calibration.WetRaw},
		{"guard_low", o.GuardLow, &s.Calibration.GuardLow},
		{"guard_high", o.GuardHigh, &s.Calibration.GuardHigh},
		{"fallback_pct", o.FallbackPct, &s.Calibration.FallbackPct},
		{"activation_threshold", o.Threshold, &s.Policy.ActivationThreshold},
	}
	for _, f := range ints {
		v := strings.TrimSpace(f.raw)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %q is not an integer", f.name, f.raw)
		}
		*f.dst = n
	}

	if p := strings.TrimSpace(o.Polarity); p != "" {
		s.Calibration.Polarity = sensor.Polarity(p)
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"override_duration", o.Override, &s.Policy.OverrideDuration},
		{"tick_period", o.Tick, &s.Tick},
	}
	for _, f := range durations {
		v := strings.TrimSpace(f.raw)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings the controller loop depends on.
func (s Settings) Validate() error {
	if s.Tick <= 0 {
		return fmt.Errorf("tick_period must be positive, got %s", s.Tick)
	}
	if err := s.Policy.Validate(); err != nil {
		return err
	}
	if err := s.Calibration.Validate(); err != nil {
		return err
	}
	if s.Calibration.FallbackPct >= s.Policy.ActivationThreshold {
		return fmt.Errorf("%w (%d >= %d)", ErrFallbackNotDry, s.Calibration.FallbackPct, s.Policy.ActivationThreshold)
	}
	return nil
}
