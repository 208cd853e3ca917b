// Command bridge reads the sensor board without a GUI, logs every forwarded
// reading as JSON and optionally publishes readings and alerts over MQTT.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/publish"
	"github.com/itohio/gohtu/pkg/telemetry"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use mocked device instead of serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
		mqttFlag           = flag.String("mqtt", "", "MQTT broker URL, enables publishing (e.g., tcp://localhost:1883)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}
	if *mqttFlag != "" {
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = *mqttFlag
	}

	var s sink
	if cfg.MQTT.Enabled {
		publisher, err := publish.Connect(cfg.MQTT)
		if err != nil {
			logger.Error("failed to connect to MQTT", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		s = publisher
		logger.Info("connected to MQTT", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	}

	var device telemetry.Device
	if *mockFlag {
		device = telemetry.NewMock(&cfg.Mock)
	} else {
		device = telemetry.New(cfg.Serial.Port, cfg.Serial.BaudRate, telemetry.DefaultBufferSize)
	}
	if err := device.Connect(); err != nil {
		logger.Error("failed to connect to device", "port", cfg.Serial.Port, "mock", *mockFlag, "error", err)
		os.Exit(1)
	}
	if serial, ok := device.(*telemetry.Serial); ok {
		logger.Info("connected to serial port", "port", serial.Port(), "baud_rate", cfg.Serial.BaudRate)
	} else {
		logger.Info("connected to mocked device", "interval", cfg.Mock.Interval)
	}

	b := newBridge(cfg, logger, s)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.run(device.Readings())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-done:
		logger.Warn("device stream ended")
	}

	device.Close()
	<-done
}
