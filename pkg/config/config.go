package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Alert rule kinds.
const (
	TemperatureAbove = "temperature_above"
	TemperatureBelow = "temperature_below"
	HumidityAbove    = "humidity_above"
	HumidityBelow    = "humidity_below"
	TemperatureEqual = "temperature_equal"
	HumidityEqual    = "humidity_equal"
)

// Config represents the host application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Reader      ReaderConfig      `yaml:"reader"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Alerts      []AlertConfig     `yaml:"alerts"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"` // Empty selects the first board found by USB description
	BaudRate int    `yaml:"baud_rate"`
}

// ReaderConfig controls how often readings are forwarded.
type ReaderConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Minimum spacing between forwarded readings (0 = forward all)
	StaleAfter      time.Duration `yaml:"stale_after"`      // Latest reading is considered stale after this long
}

// MeasurementConfig contains history parameters.
type MeasurementConfig struct {
	Window         time.Duration `yaml:"window"`          // History window kept by the monitor
	AverageSamples int           `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
}

// AlertConfig is one threshold rule.
type AlertConfig struct {
	Kind      string  `yaml:"kind"`
	Threshold float64 `yaml:"threshold"`
}

// MQTTConfig contains the MQTT forwarding configuration.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Interval         time.Duration `yaml:"interval"`          // Sampling interval of the simulated firmware
	Tick             time.Duration `yaml:"tick"`              // How often the simulated firmware polls
	BaseTemperature  float64       `yaml:"base_temperature"`  // °C
	TemperatureSwing float64       `yaml:"temperature_swing"` // Peak deviation, °C
	BaseHumidity     float64       `yaml:"base_humidity"`     // %RH
	HumiditySwing    float64       `yaml:"humidity_swing"`    // Peak deviation, %RH
	Period           time.Duration `yaml:"period"`            // Period of the simulated swing
	FailEvery        int           `yaml:"fail_every"`        // Every Nth measurement fails (0 = never)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "", // Auto-discover
			BaudRate: 9600,
		},
		Reader: ReaderConfig{
			RefreshInterval: 60 * time.Second,
			StaleAfter:      3 * time.Minute,
		},
		Measurement: MeasurementConfig{
			Window:         24 * time.Hour,
			AverageSamples: 0, // No averaging by default
		},
		Alerts: []AlertConfig{},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			ClientID:    "gohtu-bridge",
			TopicPrefix: "gohtu",
		},
		Mock: MockConfig{
			Interval:         2 * time.Second,
			Tick:             100 * time.Millisecond,
			BaseTemperature:  21.5,
			TemperatureSwing: 3.0,
			BaseHumidity:     45.0,
			HumiditySwing:    10.0,
			Period:           time.Minute,
			FailEvery:        7,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the alert rules.
func (c *Config) Validate() error {
	for i, a := range c.Alerts {
		switch a.Kind {
		case TemperatureAbove, TemperatureBelow, HumidityAbove, HumidityBelow, TemperatureEqual, HumidityEqual:
		default:
			return fmt.Errorf("alert %d: unknown kind %q", i, a.Kind)
		}
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	// A zero refresh interval is kept: it disables the refresh gate.
	if c.Reader.StaleAfter == 0 {
		c.Reader.StaleAfter = def.Reader.StaleAfter
	}

	if c.Measurement.Window == 0 {
		c.Measurement.Window = def.Measurement.Window
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}

	if c.Mock.Interval == 0 {
		c.Mock.Interval = def.Mock.Interval
	}
	if c.Mock.Tick == 0 {
		c.Mock.Tick = def.Mock.Tick
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
}
