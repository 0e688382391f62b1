// Command controller runs the irrigation control loop on a host. The command
// protocol is read from stdin and telemetry is written to stdout; logs go to
// stderr so they never mix with the protocol stream.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"irrigation_controller/internal/config"
	"irrigation_controller/internal/control"
	"irrigation_controller/internal/controller"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/pump"
	"irrigation_controller/internal/sensor"
	"irrigation_controller/internal/telemetry"
)

const inboundQueue = 16

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("invalid configuration", "err", err)
	}
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctrl := build(cfg.Controller, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("controller_started",
		"tick", cfg.Controller.TickPeriod,
		"threshold", cfg.Controller.ActivationThreshold,
		"override", cfg.Controller.OverrideDuration,
		"mode", ctrl.Machine().State().Mode,
	)
	ctrl.Run(ctx, cfg.Controller.TickPeriod)
	log.Infow("controller_stopped", "ticks", ctrl.Ticks())
}

func build(cfg config.ControllerConfig, log *logger.Logger) *controller.Controller {
	seed := cfg.Simulator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	relay := pump.NewRelay(cfg.RelayActiveLow)
	actuator := pump.NewObserved(relay, log.Named("pump"))

	cal := cfg.Calibration.Calibration()
	reader := sensor.NewSimulatedReader(cal, cfg.Simulator.Params(), rnd, relay.Get)
	sampler := sensor.NewSampler(reader, cal, rnd)

	machine := control.NewMachine(cfg.Policy(), actuator)
	publisher := telemetry.NewPublisher(os.Stdout, cfg.Nutrients.Nutrients())
	inbound := protocol.NewLineQueue(os.Stdin, inboundQueue)

	return controller.New(sampler, machine, publisher, inbound, log.Named("controller"))
}
