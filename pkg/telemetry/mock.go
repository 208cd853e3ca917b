package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/sampler"
)

// Mock simulates a sensor board for testing and development. It runs the
// same sampling loop as the firmware against a simulated HTU21D and parses
// the emitted lines exactly like Serial does.
type Mock struct {
	cfg *config.MockConfig

	readings  chan Reading
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	sensor *simSensor
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:       cfg,
		readings:  make(chan Reading, DefaultBufferSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Connect simulates connecting to the device and starts the simulated firmware.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	start := time.Now()
	m.sensor = newSimSensor(m.cfg, start)

	clock := sampler.ClockFunc(func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	})
	out := &lineOutput{ctx: m.ctx, out: m.readings}
	s := sampler.New(m.sensor, out, clock, uint32(m.cfg.Interval.Milliseconds()))
	if err := s.Setup(); err != nil {
		return fmt.Errorf("failed to set up simulated firmware: %w", err)
	}

	m.connected = true

	go func() {
		defer close(m.done)
		defer close(m.readings)
		sampler.Run(m.ctx, s, m.cfg.Tick)
	}()

	return nil
}

// Close stops the mocked device. The readings channel is closed once the
// simulated firmware has stopped.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.mu.Unlock()

	<-m.done
	return nil
}

// Readings returns the channel for reading parsed lines.
func (m *Mock) Readings() <-chan Reading {
	return m.readings
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// lineOutput feeds firmware lines back through ParseLine.
type lineOutput struct {
	ctx  context.Context
	out  chan<- Reading
	baud uint32
}

func (o *lineOutput) Configure(baudRate uint32) error {
	o.baud = baudRate
	return nil
}

func (o *lineOutput) WriteLine(line string) {
	reading, err := ParseLine(line, time.Now())
	if err != nil {
		log.Printf("Mock emitted unparsable line '%s': %v", line, err)
		return
	}

	select {
	case o.out <- reading:
	case <-o.ctx.Done():
	default:
		// Channel full, skip
	}
}

// simSensor produces a slow sinusoidal climate with a deterministic failure pattern.
type simSensor struct {
	cfg   *config.MockConfig
	start time.Time

	count       int
	temperature float32
	humidity    float32
}

func newSimSensor(cfg *config.MockConfig, start time.Time) *simSensor {
	return &simSensor{cfg: cfg, start: start}
}

func (s *simSensor) Configure() error { return nil }

func (s *simSensor) Measure() error {
	s.count++
	if s.cfg.FailEvery > 0 && s.count%s.cfg.FailEvery == 0 {
		return fmt.Errorf("simulated crc mismatch: %w", sampler.ErrMeasurementUnavailable)
	}

	s.temperature, s.humidity = s.at(time.Since(s.start))
	return nil
}

// at returns the simulated climate after elapsed time. Humidity moves
// against temperature, as it does in a closed room.
func (s *simSensor) at(elapsed time.Duration) (float32, float32) {
	phase := float32(0)
	if s.cfg.Period > 0 {
		phase = 2 * math32.Pi * float32(elapsed.Seconds()/s.cfg.Period.Seconds())
	}
	swing := math32.Sin(phase)

	t := float32(s.cfg.BaseTemperature) + float32(s.cfg.TemperatureSwing)*swing
	h := float32(s.cfg.BaseHumidity) - float32(s.cfg.HumiditySwing)*swing
	return t, clampHumidity(h)
}

func (s *simSensor) Temperature() float32 { return s.temperature }
func (s *simSensor) Humidity() float32    { return s.humidity }

func clampHumidity(h float32) float32 {
	return math32.Max(0, math32.Min(100, h))
}
