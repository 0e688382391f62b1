package pump

import "sync/atomic"

// Logger is the subset of the structured logger used here.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
}

// Observed decorates an Actuator with transition logging and a switch counter.
// It forwards every read to the wrapped actuator.
type Observed struct {
	next     Actuator
	log      Logger
	switches atomic.Int64
}

// NewObserved wraps next. log may be nil.
func NewObserved(next Actuator, log Logger) *Observed {
	return &Observed{next: next, log: log}
}

func (o *Observed) Set(on bool) {
	prev := o.next.Get()
	o.next.Set(on)
	if prev == on {
		return
	}
	n := o.switches.Add(1)
	if o.log != nil {
		o.log.Infow("pump_switched", "from", Label(prev), "to", Label(on), "switches", n)
	}
}

func (o *Observed) Get() bool { return o.next.Get() }

// Switches returns how many level changes were commanded.
func (o *Observed) Switches() int64 { return o.switches.Load() }
