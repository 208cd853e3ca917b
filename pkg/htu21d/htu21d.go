// Package htu21d drives the HTU21D(F) temperature and humidity sensor over I2C.
//
// Datasheet: https://www.te.com/usa-en/product-CAT-HSC0004.html
package htu21d

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"github.com/itohio/gohtu/pkg/sampler"
)

const (
	// Address is the fixed I2C address of the HTU21D.
	Address = 0x40

	cmdTriggerTempNoHold     = 0xF3
	cmdTriggerHumidityNoHold = 0xF5
	cmdSoftReset             = 0xFE

	resetDelay       = 15 * time.Millisecond
	temperatureDelay = 50 * time.Millisecond // 14-bit conversion
	humidityDelay    = 16 * time.Millisecond // 12-bit conversion

	// The two low bits of every result carry status, not data.
	statusMask = 0x03
)

// ErrCRC is returned when a result's checksum byte does not match its data.
var ErrCRC = errors.New("htu21d: crc mismatch")

// Device is an HTU21D on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	temperature float32
	humidity    float32

	buf   [3]byte
	sleep func(time.Duration)
}

var _ sampler.Sensor = (*Device)(nil)

// New creates a Device on the given bus at the default address.
func New(bus drivers.I2C) *Device {
	return &Device{
		bus:     bus,
		Address: Address,
		sleep:   time.Sleep,
	}
}

// Configure soft-resets the sensor.
func (d *Device) Configure() error {
	if err := d.bus.Tx(d.Address, []byte{cmdSoftReset}, nil); err != nil {
		return err
	}
	d.sleep(resetDelay)
	return nil
}

// Measure performs one temperature and one humidity conversion. On failure
// the values from the last successful measurement are kept and the error
// joins sampler.ErrMeasurementUnavailable with the bus error or ErrCRC.
func (d *Device) Measure() error {
	rawT, err := d.read(cmdTriggerTempNoHold, temperatureDelay)
	if err != nil {
		return errors.Join(sampler.ErrMeasurementUnavailable, err)
	}
	rawH, err := d.read(cmdTriggerHumidityNoHold, humidityDelay)
	if err != nil {
		return errors.Join(sampler.ErrMeasurementUnavailable, err)
	}

	d.temperature = convertTemperature(rawT)
	d.humidity = convertHumidity(rawH)
	return nil
}

// Temperature returns the last measured temperature in degrees Celsius.
func (d *Device) Temperature() float32 {
	return d.temperature
}

// Humidity returns the last measured relative humidity in percent.
func (d *Device) Humidity() float32 {
	return d.humidity
}

func (d *Device) read(cmd byte, delay time.Duration) (uint16, error) {
	if err := d.bus.Tx(d.Address, []byte{cmd}, nil); err != nil {
		return 0, err
	}
	d.sleep(delay)

	if err := d.bus.Tx(d.Address, nil, d.buf[:]); err != nil {
		return 0, err
	}

	if crc8(d.buf[:2]) != d.buf[2] {
		return 0, ErrCRC
	}

	raw := uint16(d.buf[0])<<8 | uint16(d.buf[1])
	return raw &^ statusMask, nil
}

func convertTemperature(raw uint16) float32 {
	return -46.85 + 175.72*float32(raw)/65536
}

func convertHumidity(raw uint16) float32 {
	return -6 + 125*float32(raw)/65536
}

// crc8 computes the HTU21D checksum: polynomial x^8+x^5+x^4+1 (0x131), init 0.
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
