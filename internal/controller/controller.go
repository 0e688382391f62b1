// Package controller runs the irrigation tick loop: sample, decide, actuate,
// publish, then serve at most one pending command.
package controller

import (
	"context"
	"time"

	"irrigation_controller/internal/control"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/sensor"
	"irrigation_controller/internal/telemetry"
)

// Logger is the subset of the zap sugared logger the loop needs. It is kept
// small so the firmware build can pass nil.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

// Controller owns one tick of the control cycle. It is single-threaded: Tick
// and Run must not be called concurrently.
type Controller struct {
	sampler   *sensor.Sampler
	machine   *control.Machine
	publisher *telemetry.Publisher
	handler   *protocol.Handler
	inbound   protocol.LineSource
	log       Logger

	ticks int64
}

// New wires the collaborators. inbound and log may be nil.
func New(s *sensor.Sampler, m *control.Machine, p *telemetry.Publisher, inbound protocol.LineSource, log Logger) *Controller {
	return &Controller{
		sampler:   s,
		machine:   m,
		publisher: p,
		handler:   protocol.NewHandler(m),
		inbound:   inbound,
		log:       log,
	}
}

// Machine exposes the state machine for status reporting.
func (c *Controller) Machine() *control.Machine { return c.machine }

// Ticks returns the number of completed ticks.
func (c *Controller) Ticks() int64 { return c.ticks }

// Run ticks immediately and then every period until ctx is canceled.
func (c *Controller) Run(ctx context.Context, period time.Duration) {
	c.Tick(time.Now())

	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			c.Tick(now)
		}
	}
}

// Tick performs one full cycle. Nothing in it is fatal: write failures are
// logged and the next tick runs as usual.
func (c *Controller) Tick(now time.Time) telemetry.Record {
	reading := c.sampler.Sample()
	c.reportFaults(reading)

	wasOn := c.machine.PumpOn()
	act := c.machine.Tick(reading, now)
	if act.Expired {
		c.diagnostic(telemetry.LevelInfo, telemetry.ExpiryNotice(c.machine.Policy().OverrideDuration))
		c.infow("override_expired", "soil_pct", reading.SoilPct)
	}
	if act.SetPump && act.PumpOn != wasOn {
		c.infow("auto_decision",
			"soil_pct", reading.SoilPct,
			"threshold", c.machine.Policy().ActivationThreshold,
			"pump_on", act.PumpOn,
		)
	}

	rec, err := c.publisher.Publish(reading, c.machine.PumpOn())
	if err != nil {
		c.warnw("publish_failed", "error", err)
	}

	c.serveCommand(now)
	c.ticks++
	return rec
}

func (c *Controller) reportFaults(r models.Reading) {
	if r.Fault.Has(models.FaultSoil) {
		c.diagnostic(telemetry.LevelWarning, telemetry.SoilFaultNotice(r.SoilPct))
		c.warnw("soil_probe_fault", "raw", r.SoilRaw, "fallback_pct", r.SoilPct)
	}
	if r.Fault.Has(models.FaultThermal) {
		c.diagnostic(telemetry.LevelWarning, telemetry.ThermalFaultNotice())
		c.warnw("thermal_probe_fault")
	}
}

// serveCommand consumes at most one pending line per tick.
func (c *Controller) serveCommand(now time.Time) {
	if c.inbound == nil {
		return
	}
	line, ok := c.inbound.Poll()
	if !ok {
		return
	}
	resp, ok := c.handler.Handle(line, now)
	if !ok {
		return
	}
	c.infow("command_handled", "line", line, "response", resp)
	if err := c.publisher.Line(resp); err != nil {
		c.warnw("response_write_failed", "error", err)
	}
}

func (c *Controller) diagnostic(level telemetry.Level, msg string) {
	if err := c.publisher.Diagnostic(level, msg); err != nil {
		c.warnw("diagnostic_write_failed", "error", err)
	}
}

func (c *Controller) infow(msg string, kv ...interface{}) {
	if c.log != nil {
		c.log.Infow(msg, kv...)
	}
}

func (c *Controller) warnw(msg string, kv ...interface{}) {
	if c.log != nil {
		c.log.Warnw(msg, kv...)
	}
}
