package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/sampler"
)

func fastMockConfig() *config.MockConfig {
	cfg := config.Default().Mock
	cfg.Interval = 20 * time.Millisecond
	cfg.Tick = time.Millisecond
	cfg.FailEvery = 0
	return &cfg
}

func TestNewMock_NilConfig(t *testing.T) {
	m := NewMock(nil)
	assert.NotNil(t, m)
	assert.Equal(t, 2*time.Second, m.cfg.Interval)
	assert.False(t, m.IsConnected())
}

func TestMock_ConnectTwice(t *testing.T) {
	m := NewMock(fastMockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect())
}

func TestMock_EmitsPairs(t *testing.T) {
	m := NewMock(fastMockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	var got []Reading
	timeout := time.After(5 * time.Second)
	for len(got) < 4 {
		select {
		case r := <-m.Readings():
			got = append(got, r)
		case <-timeout:
			t.Fatalf("received only %d readings", len(got))
		}
	}

	// The firmware always emits temperature first, then humidity.
	assert.Equal(t, Temperature, got[0].Kind)
	assert.Equal(t, Humidity, got[1].Kind)
	assert.Equal(t, Temperature, got[2].Kind)
	assert.Equal(t, Humidity, got[3].Kind)

	for _, r := range got {
		if r.Kind == Temperature {
			assert.InDelta(t, 21.5, r.Value, 3.01)
		} else {
			assert.InDelta(t, 45.0, r.Value, 10.01)
		}
	}
}

func TestSimSensor_FailEvery(t *testing.T) {
	cfg := config.Default().Mock
	cfg.FailEvery = 3
	s := newSimSensor(&cfg, time.Now())

	var failures []int
	for i := 1; i <= 9; i++ {
		if err := s.Measure(); err != nil {
			assert.True(t, errors.Is(err, sampler.ErrMeasurementUnavailable))
			failures = append(failures, i)
		}
	}
	assert.Equal(t, []int{3, 6, 9}, failures)
}

func TestSimSensor_Waveform(t *testing.T) {
	cfg := config.Default().Mock
	cfg.Period = 4 * time.Second
	s := newSimSensor(&cfg, time.Now())

	temp, hum := s.at(0)
	assert.InDelta(t, 21.5, temp, 0.01)
	assert.InDelta(t, 45.0, hum, 0.01)

	// Quarter period: temperature peaks, humidity bottoms out.
	temp, hum = s.at(time.Second)
	assert.InDelta(t, 24.5, temp, 0.01)
	assert.InDelta(t, 35.0, hum, 0.01)

	temp, hum = s.at(3 * time.Second)
	assert.InDelta(t, 18.5, temp, 0.01)
	assert.InDelta(t, 55.0, hum, 0.01)
}

func TestClampHumidity(t *testing.T) {
	assert.Equal(t, float32(0), clampHumidity(-3))
	assert.Equal(t, float32(100), clampHumidity(104))
	assert.Equal(t, float32(42), clampHumidity(42))
}
