package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensor struct {
	mu           sync.Mutex
	temperature  float32
	humidity     float32
	fail         bool
	configured   int
	measurements int
	order        *[]string
}

func (f *fakeSensor) Configure() error {
	f.configured++
	if f.order != nil {
		*f.order = append(*f.order, "sensor")
	}
	return errors.New("ignored")
}

func (f *fakeSensor) Measure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.measurements++
	if f.fail {
		return fmt.Errorf("crc mismatch: %w", ErrMeasurementUnavailable)
	}
	return nil
}

func (f *fakeSensor) Temperature() float32 { return f.temperature }
func (f *fakeSensor) Humidity() float32    { return f.humidity }

func (f *fakeSensor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.measurements
}

type fakeOutput struct {
	baud  uint32
	lines []string
	err   error
	order *[]string
}

func (f *fakeOutput) Configure(baudRate uint32) error {
	f.baud = baudRate
	if f.order != nil {
		*f.order = append(*f.order, "output")
	}
	return f.err
}

func (f *fakeOutput) WriteLine(line string) {
	f.lines = append(f.lines, line)
}

type fakeClock struct {
	mu  sync.Mutex
	now uint32
}

func (c *fakeClock) Millis() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(now uint32) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func newTestSampler(sensor *fakeSensor) (*Sampler, *fakeOutput, *fakeClock) {
	out := &fakeOutput{}
	clock := &fakeClock{}
	return New(sensor, out, clock, DefaultInterval), out, clock
}

func TestNew_Defaults(t *testing.T) {
	s := New(&fakeSensor{}, &fakeOutput{}, &fakeClock{}, 0)
	assert.Equal(t, DefaultInterval, s.Interval())
	assert.Equal(t, uint32(0), s.Last())
}

func TestSetup_Order(t *testing.T) {
	var order []string
	sensor := &fakeSensor{order: &order}
	out := &fakeOutput{order: &order}
	s := New(sensor, out, &fakeClock{}, 0)

	require.NoError(t, s.Setup())
	assert.Equal(t, []string{"output", "sensor"}, order)
	assert.Equal(t, uint32(9600), out.baud)
	assert.Equal(t, 1, sensor.configured)
}

func TestSetup_OutputError(t *testing.T) {
	sensor := &fakeSensor{}
	out := &fakeOutput{err: errors.New("uart busy")}
	s := New(sensor, out, &fakeClock{}, 0)

	assert.Error(t, s.Setup())
	assert.Equal(t, 0, sensor.configured)
}

func TestPoll_BeforeInterval(t *testing.T) {
	sensor := &fakeSensor{temperature: 21.567, humidity: 44.2}
	s, out, clock := newTestSampler(sensor)

	clock.set(59999)
	assert.False(t, s.Poll())

	assert.Empty(t, out.lines)
	assert.Equal(t, 0, sensor.measurements)
	assert.Equal(t, uint32(0), s.Last())
}

func TestPoll_IntervalElapsed(t *testing.T) {
	sensor := &fakeSensor{temperature: 21.567, humidity: 44.2}
	s, out, clock := newTestSampler(sensor)

	clock.set(60000)
	assert.True(t, s.Poll())

	assert.Equal(t, []string{"T:21.57", "H:44.20"}, out.lines)
	assert.Equal(t, 1, sensor.measurements)
	assert.Equal(t, uint32(60000), s.Last())
}

func TestPoll_MeasurementFailure(t *testing.T) {
	sensor := &fakeSensor{fail: true}
	s, out, clock := newTestSampler(sensor)

	clock.set(61234)
	assert.True(t, s.Poll())

	assert.Empty(t, out.lines)
	assert.Equal(t, uint32(61234), s.Last(), "failed attempts still advance the timestamp")

	// The next attempt is scheduled from the failed attempt, not from boot.
	sensor.fail = false
	clock.set(61234 + 59999)
	assert.False(t, s.Poll())
	clock.set(61234 + 60000)
	assert.True(t, s.Poll())
	assert.Len(t, out.lines, 2)
}

func TestPoll_Wraparound(t *testing.T) {
	tests := []struct {
		name    string
		last    uint32
		now     uint32
		attempt bool
	}{
		{"exactly interval across wrap", math.MaxUint32 - 99, 59900, true},
		{"one short across wrap", math.MaxUint32 - 99, 59899, false},
		{"just past zero", math.MaxUint32, 10, false},
		{"long after wrap", math.MaxUint32 - 10, 70000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sensor := &fakeSensor{temperature: 20, humidity: 50}
			s, out, clock := newTestSampler(sensor)
			s.last = tt.last

			clock.set(tt.now)
			assert.Equal(t, tt.attempt, s.Poll())
			if tt.attempt {
				assert.Equal(t, tt.now, s.Last())
				assert.Len(t, out.lines, 2)
			} else {
				assert.Equal(t, tt.last, s.Last())
				assert.Empty(t, out.lines)
			}
		})
	}
}

func TestPoll_RepeatedWithinInterval(t *testing.T) {
	sensor := &fakeSensor{temperature: 20, humidity: 50}
	s, out, clock := newTestSampler(sensor)

	clock.set(60000)
	require.True(t, s.Poll())
	for now := uint32(60001); now < 120000; now += 997 {
		clock.set(now)
		assert.False(t, s.Poll())
	}
	assert.Equal(t, 1, sensor.measurements)
	assert.Len(t, out.lines, 2)
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		tag   string
		value float32
		want  string
	}{
		{TagTemperature, 21.567, "T:21.57"},
		{TagHumidity, 44.2, "H:44.20"},
		{TagTemperature, -5.004, "T:-5.00"},
		{TagTemperature, 0, "T:0.00"},
		{TagHumidity, 100, "H:100.00"},
		{TagTemperature, 19.996, "T:20.00"},
		// Exact ties round half to even
		{TagTemperature, 0.125, "T:0.12"},
		{TagHumidity, 0.375, "H:0.38"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLine(tt.tag, tt.value))
		})
	}
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	sensor := &fakeSensor{temperature: 20, humidity: 50}
	clock := &fakeClock{}
	s := New(sensor, &fakeOutput{}, clock, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, s, time.Millisecond)
	}()

	clock.set(10)
	assert.Eventually(t, func() bool { return sensor.count() >= 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
