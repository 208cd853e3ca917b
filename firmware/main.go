//go:build tinygo

//go:generate tinygo flash -target=arduino

package main

import (
	"machine"
	"time"

	"github.com/itohio/gohtu/pkg/htu21d"
	"github.com/itohio/gohtu/pkg/sampler"
)

var boot = time.Now()

// millis returns milliseconds since boot; the uint32 conversion wraps after ~49.7 days.
func millis() uint32 {
	return uint32(time.Since(boot).Milliseconds())
}

func main() {
	// Configure the sensor bus
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
		Frequency: I2C_FREQUENCY,
	}); err != nil {
		println("i2c configure:", err.Error())
	}

	sensor := htu21d.New(i2c)
	out := uartOutput{port: machine.Serial}

	s := sampler.New(sensor, out, sampler.ClockFunc(millis), sampler.DefaultInterval)
	if err := s.Setup(); err != nil {
		println("uart configure:", err.Error())
	}

	// Main loop
	for {
		s.Poll()
	}
}
