//go:build tinygo

package main

import (
	"machine"

	"github.com/itohio/gohtu/pkg/sampler"
)

var _ sampler.Output = uartOutput{}

// uartOutput writes readings as text lines on the board's default serial port.
type uartOutput struct {
	port machine.Serialer
}

func (u uartOutput) Configure(baudRate uint32) error {
	return u.port.Configure(machine.UARTConfig{BaudRate: baudRate})
}

func (u uartOutput) WriteLine(line string) {
	u.port.Write([]byte(line))
	u.port.Write([]byte("\r\n"))
}
