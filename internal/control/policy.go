package control

import (
	"fmt"
	"time"
)

const (
	DefaultActivationThreshold = 40
	DefaultOverrideDuration    = 5 * time.Minute
)

// Policy holds the auto-mode threshold and the manual override lifetime.
type Policy struct {
	ActivationThreshold int           // pump runs while soil % is below this
	OverrideDuration    time.Duration // MANUAL reverts to AUTO after this
}

// DefaultPolicy returns the reference deployment policy.
func DefaultPolicy() Policy {
	return Policy{
		ActivationThreshold: DefaultActivationThreshold,
		OverrideDuration:    DefaultOverrideDuration,
	}
}

func (p Policy) Validate() error {
	if p.ActivationThreshold < 0 || p.ActivationThreshold > 100 {
		return fmt.Errorf("activation threshold %d outside [0,100]", p.ActivationThreshold)
	}
	if p.OverrideDuration <= 0 {
		return fmt.Errorf("override duration must be positive, got %s", p.OverrideDuration)
	}
	return nil
}
