//go:build tinygo

package main

import (
	"machine"

	"tinygo.org/x/drivers/dht"
)

// probes reads the DHT11 and the soil ADC.
type probes struct {
	climate dht.Device
	soil    machine.ADC
}

func newProbes(climate dht.Device, soilPin machine.Pin) *probes {
	machine.InitADC()
	adc := machine.ADC{Pin: soilPin}
	adc.Configure(machine.ADCConfig{})
	return &probes{climate: climate, soil: adc}
}

func (p *probes) ReadTemperatureHumidity() (float64, float64, error) {
	if err := p.climate.ReadMeasurements(); err != nil {
		return 0, 0, err
	}
	t, err := p.climate.TemperatureFloat(dht.C)
	if err != nil {
		return 0, 0, err
	}
	h, err := p.climate.HumidityFloat()
	if err != nil {
		return 0, 0, err
	}
	return float64(t), float64(h), nil
}

// ReadSoilRaw returns a 12-bit value; machine.ADC scales every reading to 16 bits.
func (p *probes) ReadSoilRaw() int {
	return int(p.soil.Get() >> 4)
}
