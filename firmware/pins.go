//go:build tinygo

package main

import "machine"

const (
	// Sensor bus
	I2C_FREQUENCY = 100 * machine.KHz
	PIN_SDA       = machine.SDA_PIN
	PIN_SCL       = machine.SCL_PIN
)
