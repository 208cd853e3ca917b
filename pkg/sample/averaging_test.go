package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageSamples(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		{Timestamp: now, Temperature: 20, Humidity: 40},
		{Timestamp: now.Add(time.Minute), Temperature: 21, Humidity: 50},
		{Timestamp: now.Add(2 * time.Minute), Temperature: 22, Humidity: 60},
	}

	avg := averageSamples(samples)
	assert.Equal(t, now.Add(2*time.Minute), avg.Timestamp)
	assert.InDelta(t, 21.0, avg.Temperature, 1e-9)
	assert.InDelta(t, 50.0, avg.Humidity, 1e-9)

	assert.Equal(t, Sample{}, averageSamples(nil))
}

func TestNewAveragingConverter_MovingWindow(t *testing.T) {
	converter := NewAveragingConverter(3, 10)

	in := make(chan Sample, 10)
	out := converter(in)

	now := time.Now()
	for i := 0; i < 5; i++ {
		in <- Sample{
			Timestamp:   now.Add(time.Duration(i) * time.Minute),
			Temperature: float64(20 + i),
			Humidity:    float64(40 + 2*i),
		}
	}
	close(in)

	var got []Sample
	for s := range out {
		got = append(got, s)
	}

	// One output per input; the window grows to 3 and then slides.
	require.Len(t, got, 5)
	wantTemperature := []float64{20, 20.5, 21, 22, 23}
	wantHumidity := []float64{40, 41, 42, 44, 46}
	for i, s := range got {
		assert.InDelta(t, wantTemperature[i], s.Temperature, 1e-9, "sample %d", i)
		assert.InDelta(t, wantHumidity[i], s.Humidity, 1e-9, "sample %d", i)
		assert.Equal(t, now.Add(time.Duration(i)*time.Minute), s.Timestamp)
	}
}

func TestNewAveragingConverter_InvalidWindow(t *testing.T) {
	converter := NewAveragingConverter(0, 0)

	in := make(chan Sample, 2)
	out := converter(in)

	in <- Sample{Temperature: 20}
	in <- Sample{Temperature: 30}
	close(in)

	var got []Sample
	for s := range out {
		got = append(got, s)
	}

	// Window of 1 passes samples through unchanged.
	require.Len(t, got, 2)
	assert.Equal(t, 20.0, got[0].Temperature)
	assert.Equal(t, 30.0, got[1].Temperature)
}
