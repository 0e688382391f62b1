//go:build tinygo

// Command firmware is the on-board build of the controller for an ESP32
// style board: DHT11 on GPIO15, capacitive soil probe on GPIO34 and the pump
// relay on GPIO5. Protocol and telemetry share the USB UART.
//
// Calibration, policy and tick are set per field batch at link time, e.g.
//
//	tinygo flash -target esp32 -ldflags "-X main.polarity=dry_high -X main.dryRaw=3600 -X main.wetRaw=1400" ./cmd/firmware
package main

import (
	"context"
	"machine"
	"time"

	"tinygo.org/x/drivers/dht"

	"irrigation_controller/internal/control"
	"irrigation_controller/internal/controller"
	"irrigation_controller/internal/deploy"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/pump"
	"irrigation_controller/internal/sensor"
	"irrigation_controller/internal/telemetry"
)

const (
	dhtPin   = machine.GPIO15
	soilPin  = machine.GPIO34
	relayPin = machine.GPIO5

	relayActiveLow = false
	blinkPeriod    = 250 * time.Millisecond
)

// Link-time overrides (-ldflags -X main.name=value). Empty keeps the default.
var (
	dryRaw, wetRaw, polarity       string
	guardLow, guardHigh, fallback  string
	threshold, overrideFor, tickAt string
)

func main() {
	uart := machine.Serial
	time.Sleep(time.Second) // let the host attach to the port

	relay := pump.NewPinRelay(relayPin, relayActiveLow)
	nutrients := telemetry.DefaultNutrients()
	publisher := telemetry.NewPublisher(uart, &nutrients)

	settings, err := deploy.Overrides{
		DryRaw:      dryRaw,
		WetRaw:      wetRaw,
		Polarity:    polarity,
		GuardLow:    guardLow,
		GuardHigh:   guardHigh,
		FallbackPct: fallback,
		Threshold:   threshold,
		Override:    overrideFor,
		Tick:        tickAt,
	}.Apply(deploy.Defaults())
	if err != nil {
		// a miscalibrated image must not drive the pump
		for {
			_ = publisher.Diagnostic(telemetry.LevelWarning, "invalid build settings, pump disabled: "+err.Error())
			time.Sleep(deploy.Defaults().Tick)
		}
	}
	selfTest(relay)

	reader := newProbes(dht.New(dhtPin, dht.DHT11), soilPin)
	sampler := sensor.NewSampler(reader, settings.Calibration, nil)

	machineState := control.NewMachine(settings.Policy, relay)
	inbound := protocol.NewLineAssembler(uart, protocol.DefaultMaxLine)

	controller.New(sampler, machineState, publisher, inbound, nil).Run(context.Background(), settings.Tick)
}

// selfTest pulses the relay twice so a miswired relay is visible at power-up.
func selfTest(r *pump.PinRelay) {
	for i := 0; i < 2; i++ {
		r.Set(true)
		time.Sleep(blinkPeriod)
		r.Set(false)
		time.Sleep(blinkPeriod)
	}
}
