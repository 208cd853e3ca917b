package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
	"github.com/itohio/gohtu/pkg/telemetry"
)

type fakeSink struct {
	mu      sync.Mutex
	samples []sample.Sample
	alerts  []monitor.Alert
	err     error
}

func (f *fakeSink) PublishSample(s sample.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, s)
	return f.err
}

func (f *fakeSink) PublishAlert(a monitor.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

// syncBuffer guards log output written from the pipeline goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(b.buf.Bytes()))
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		out = append(out, rec)
	}
	return out
}

func feed(readings chan<- telemetry.Reading, start time.Time, minutes int, temperature, humidity float64) {
	ts := start.Add(time.Duration(minutes) * time.Minute)
	readings <- telemetry.Reading{Timestamp: ts, Kind: telemetry.Temperature, Value: temperature}
	readings <- telemetry.Reading{Timestamp: ts, Kind: telemetry.Humidity, Value: humidity}
}

func runBridge(t *testing.T, b *bridge, readings chan telemetry.Reading) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.run(readings)
	}()
	close(readings)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after readings closed")
	}
}

func TestBridge_ForwardsGatedSamples(t *testing.T) {
	cfg := config.Default()
	cfg.Reader.RefreshInterval = time.Minute

	logs := &syncBuffer{}
	s := &fakeSink{}
	b := newBridge(cfg, slog.New(slog.NewJSONHandler(logs, nil)), s)

	readings := make(chan telemetry.Reading, 20)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	feed(readings, start, 0, 21.5, 45)
	readings <- telemetry.Reading{Timestamp: start.Add(10 * time.Second), Kind: telemetry.Temperature, Value: 21.6}
	readings <- telemetry.Reading{Timestamp: start.Add(10 * time.Second), Kind: telemetry.Humidity, Value: 45.1}
	feed(readings, start, 1, 22.0, 44)

	runBridge(t, b, readings)

	require.Len(t, s.samples, 2)
	assert.Equal(t, 21.5, s.samples[0].Temperature)
	assert.Equal(t, 22.0, s.samples[1].Temperature)

	recs := logs.records(t)
	require.Len(t, recs, 2)
	assert.Equal(t, "reading", recs[0]["msg"])
	assert.Equal(t, 21.5, recs[0]["temperature_c"])
	assert.Equal(t, 45.0, recs[0]["humidity_pct"])
}

func TestBridge_DefaultConfigKeepsJitteredFirmwareCycles(t *testing.T) {
	s := &fakeSink{}
	b := newBridge(config.Default(), slog.New(slog.NewJSONHandler(&syncBuffer{}, nil)), s)

	readings := make(chan telemetry.Reading, 20)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	jitter := []time.Duration{0, -3 * time.Millisecond, 2 * time.Millisecond, -time.Millisecond, 4 * time.Millisecond, -2 * time.Millisecond}
	for i, j := range jitter {
		ts := start.Add(time.Duration(i)*time.Minute + j)
		readings <- telemetry.Reading{Timestamp: ts, Kind: telemetry.Temperature, Value: 21}
		readings <- telemetry.Reading{Timestamp: ts, Kind: telemetry.Humidity, Value: 45}
	}

	runBridge(t, b, readings)

	assert.Len(t, s.samples, len(jitter))
}

func TestBridge_Alerts(t *testing.T) {
	cfg := config.Default()
	cfg.Reader.RefreshInterval = time.Minute
	cfg.Alerts = []config.AlertConfig{{Kind: config.HumidityAbove, Threshold: 60}}

	logs := &syncBuffer{}
	s := &fakeSink{}
	b := newBridge(cfg, slog.New(slog.NewJSONHandler(logs, nil)), s)

	readings := make(chan telemetry.Reading, 20)
	start := time.Now()
	feed(readings, start, 0, 21, 55)
	feed(readings, start, 1, 21, 65)
	feed(readings, start, 2, 21, 66)

	runBridge(t, b, readings)

	require.Len(t, s.alerts, 1)
	assert.Equal(t, config.HumidityAbove, s.alerts[0].Rule.Kind)
	assert.Equal(t, 65.0, s.alerts[0].Value)

	var warnings int
	for _, rec := range logs.records(t) {
		if rec["level"] == "WARN" {
			warnings++
			assert.Equal(t, "alert", rec["msg"])
			assert.Equal(t, "humidity_above", rec["rule"])
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestBridge_PublishErrorIsLogged(t *testing.T) {
	cfg := config.Default()

	logs := &syncBuffer{}
	b := newBridge(cfg, slog.New(slog.NewJSONHandler(logs, nil)), &fakeSink{err: errors.New("broker down")})

	readings := make(chan telemetry.Reading, 4)
	feed(readings, time.Now(), 0, 20, 50)

	runBridge(t, b, readings)

	var errorsLogged int
	for _, rec := range logs.records(t) {
		if rec["level"] == "ERROR" {
			errorsLogged++
			assert.Equal(t, "broker down", rec["error"])
		}
	}
	assert.Equal(t, 1, errorsLogged)
}

func TestBridge_NoSink(t *testing.T) {
	logs := &syncBuffer{}
	b := newBridge(config.Default(), slog.New(slog.NewJSONHandler(logs, nil)), nil)

	readings := make(chan telemetry.Reading, 4)
	feed(readings, time.Now(), 0, 20, 50)

	runBridge(t, b, readings)

	assert.Len(t, logs.records(t), 1)
}
