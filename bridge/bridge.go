package main

import (
	"log/slog"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
	"github.com/itohio/gohtu/pkg/telemetry"
)

// sink receives forwarded samples and alerts.
type sink interface {
	PublishSample(s sample.Sample) error
	PublishAlert(a monitor.Alert) error
}

// bridge turns device readings into logged and published samples.
type bridge struct {
	cfg     *config.Config
	logger  *slog.Logger
	monitor *monitor.Monitor
	sink    sink // nil when MQTT is disabled
}

func newBridge(cfg *config.Config, logger *slog.Logger, s sink) *bridge {
	b := &bridge{
		cfg:     cfg,
		logger:  logger,
		monitor: monitor.New(cfg),
		sink:    s,
	}

	b.monitor.OnUpdate(func(samples []sample.Sample, trends []monitor.Trend) {
		if len(samples) == 0 {
			return
		}
		b.forward(samples[len(samples)-1])
	})
	b.monitor.OnAlert(b.alert)

	return b
}

// run processes readings until the channel closes.
func (b *bridge) run(readings <-chan telemetry.Reading) {
	samples := sample.NewConverter(500)(readings)
	if b.cfg.Measurement.AverageSamples > 0 {
		samples = sample.NewAveragingConverter(b.cfg.Measurement.AverageSamples, 500)(samples)
	}
	samples = sample.NewRefreshGate(b.cfg.Reader.RefreshInterval, 500)(samples)

	b.monitor.ProcessSamples(samples)
}

func (b *bridge) forward(s sample.Sample) {
	b.logger.Info("reading",
		"timestamp", s.Timestamp,
		"temperature_c", s.Temperature,
		"humidity_pct", s.Humidity,
	)

	if b.sink == nil {
		return
	}
	if err := b.sink.PublishSample(s); err != nil {
		b.logger.Error("failed to publish reading", "error", err)
	}
}

func (b *bridge) alert(a monitor.Alert) {
	b.logger.Warn("alert",
		"rule", a.Rule.Kind,
		"threshold", a.Rule.Threshold,
		"value", a.Value,
		"timestamp", a.Time,
	)

	if b.sink == nil {
		return
	}
	if err := b.sink.PublishAlert(a); err != nil {
		b.logger.Error("failed to publish alert", "error", err)
	}
}
