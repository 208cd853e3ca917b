// Package publish forwards samples and alerts to an MQTT broker as JSON.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
)

const (
	// DefaultTimeout bounds how long a publish waits for the broker.
	DefaultTimeout = 5 * time.Second

	readingTopic = "reading"
	alertTopic   = "alert"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt publish timed out")

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends JSON payloads under a topic prefix with QoS 0, not retained.
type Publisher struct {
	client  client
	prefix  string
	timeout time.Duration
}

type readingPayload struct {
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
}

type alertPayload struct {
	Rule      string    `json:"rule"`
	Threshold float64   `json:"threshold"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Connect dials the configured broker.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(DefaultTimeout)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", cfg.Broker, token.Error())
	}

	return New(c, cfg.TopicPrefix), nil
}

// New wraps an already connected client.
func New(c client, prefix string) *Publisher {
	return &Publisher{
		client:  c,
		prefix:  prefix,
		timeout: DefaultTimeout,
	}
}

// PublishSample sends s to <prefix>/reading.
func (p *Publisher) PublishSample(s sample.Sample) error {
	return p.publish(readingTopic, readingPayload{
		Timestamp:    s.Timestamp,
		TemperatureC: s.Temperature,
		HumidityPct:  s.Humidity,
	})
}

// PublishAlert sends a to <prefix>/alert.
func (p *Publisher) PublishAlert(a monitor.Alert) error {
	return p.publish(alertTopic, alertPayload{
		Rule:      a.Rule.Kind,
		Threshold: a.Rule.Threshold,
		Value:     a.Value,
		Timestamp: a.Time,
	})
}

// Close disconnects from the broker, allowing 250ms for in-flight work.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// Topic returns the full topic for a suffix.
func (p *Publisher) Topic(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "/" + suffix
}

func (p *Publisher) publish(suffix string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", suffix, err)
	}

	topic := p.Topic(suffix)
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
