package sampler

import (
	"errors"
	"strconv"
)

const (
	// DefaultInterval is the firmware sampling interval in milliseconds.
	DefaultInterval uint32 = 60000
	// DefaultBaudRate is the UART baud rate the firmware emits readings at.
	DefaultBaudRate uint32 = 9600

	// TagTemperature prefixes temperature lines.
	TagTemperature = "T"
	// TagHumidity prefixes humidity lines.
	TagHumidity = "H"
)

// ErrMeasurementUnavailable is reported by a Sensor when a measurement attempt fails.
var ErrMeasurementUnavailable = errors.New("measurement unavailable")

// Sensor is the temperature/humidity driver the loop samples.
// Temperature and Humidity are only valid after a successful Measure.
type Sensor interface {
	Configure() error
	Measure() error
	Temperature() float32
	Humidity() float32
}

// Output is the line-oriented transport readings are written to.
type Output interface {
	Configure(baudRate uint32) error
	WriteLine(line string)
}

// Clock returns milliseconds since boot. The counter may wrap.
type Clock interface {
	Millis() uint32
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() uint32

// Millis calls f.
func (f ClockFunc) Millis() uint32 { return f() }

// Sampler is the non-blocking timed sampling loop.
// It holds the timestamp of the last sampling attempt and nothing else.
type Sampler struct {
	sensor   Sensor
	out      Output
	clock    Clock
	interval uint32
	last     uint32

	buf []byte
}

// New creates a Sampler. An interval of 0 selects DefaultInterval.
func New(sensor Sensor, out Output, clock Clock, interval uint32) *Sampler {
	if interval == 0 {
		interval = DefaultInterval
	}

	return &Sampler{
		sensor:   sensor,
		out:      out,
		clock:    clock,
		interval: interval,
		buf:      make([]byte, 0, 16),
	}
}

// Setup runs the startup sequence: output first, then the sensor.
// The sensor result is ignored; a failing sensor shows up as skipped cycles.
func (s *Sampler) Setup() error {
	if err := s.out.Configure(DefaultBaudRate); err != nil {
		return err
	}
	_ = s.sensor.Configure()
	return nil
}

// Poll checks whether the interval has elapsed and, if so, performs one
// measurement and emits it. It never blocks on its own and reports whether
// a sampling attempt was made.
func (s *Sampler) Poll() bool {
	now := s.clock.Millis()

	// Unsigned subtraction stays correct across counter wraparound.
	if now-s.last < s.interval {
		return false
	}
	s.last = now

	if err := s.sensor.Measure(); err != nil {
		return true
	}

	s.emit(TagTemperature, s.sensor.Temperature())
	s.emit(TagHumidity, s.sensor.Humidity())
	return true
}

// Last returns the timestamp of the last sampling attempt.
func (s *Sampler) Last() uint32 {
	return s.last
}

// Interval returns the sampling interval in milliseconds.
func (s *Sampler) Interval() uint32 {
	return s.interval
}

func (s *Sampler) emit(tag string, value float32) {
	s.buf = AppendLine(s.buf[:0], tag, value)
	s.out.WriteLine(string(s.buf))
}

// AppendLine appends "<tag>:<value>" with two decimals to dst.
func AppendLine(dst []byte, tag string, value float32) []byte {
	dst = append(dst, tag...)
	dst = append(dst, ':')
	return strconv.AppendFloat(dst, float64(value), 'f', 2, 32)
}

// FormatLine returns "<tag>:<value>" with two decimals.
func FormatLine(tag string, value float32) string {
	return string(AppendLine(nil, tag, value))
}
