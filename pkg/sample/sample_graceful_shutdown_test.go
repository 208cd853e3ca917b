package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/gohtu/pkg/telemetry"
)

// TestConverter_GracefulShutdown tests that converter closes output channel
// when input channel is closed.
func TestConverter_GracefulShutdown(t *testing.T) {
	converter := NewConverter(10)
	input := make(chan telemetry.Reading, 10)
	output := converter(input)

	// Read samples in background
	received := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		count := 0
		for range output {
			count++
		}
		received <- count
	}()

	// Send some pairs
	now := time.Now()
	numSamples := 3
	for i := 0; i < numSamples; i++ {
		ts := now.Add(time.Duration(i) * time.Minute)
		input <- telemetry.Reading{Timestamp: ts, Kind: telemetry.Temperature, Value: 21}
		input <- telemetry.Reading{Timestamp: ts, Kind: telemetry.Humidity, Value: 45}
	}

	// Close input channel - this should cause converter to close output
	close(input)

	// Wait for output channel to close (reader goroutine to finish)
	select {
	case <-done:
		// Output channel closed successfully
	case <-time.After(2 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}

	select {
	case count := <-received:
		assert.Equal(t, numSamples, count, "Should receive all samples before channel closes")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Did not receive sample count")
	}
}

// TestAveragingConverter_GracefulShutdown tests that averaging converter
// closes output channel when input channel is closed.
func TestAveragingConverter_GracefulShutdown(t *testing.T) {
	converter := NewAveragingConverter(3, 10)
	input := make(chan Sample, 10)
	output := converter(input)

	done := make(chan struct{})
	count := 0
	go func() {
		defer close(done)
		for range output {
			count++
		}
	}()

	now := time.Now()
	for i := 0; i < 5; i++ {
		input <- Sample{
			Timestamp:   now.Add(time.Duration(i) * time.Minute),
			Temperature: float64(i),
		}
	}
	close(input)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}
	assert.Equal(t, 5, count)
}
