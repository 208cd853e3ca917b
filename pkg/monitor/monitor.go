package monitor

import (
	"sync"
	"time"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/sample"
)

var _ ClimateMonitor = (*Monitor)(nil)

// Trend is the rate of change between two consecutive samples, per minute.
type Trend struct {
	Timestamp   time.Time // Timestamp of the later sample
	Temperature float64   // °C/min
	Humidity    float64   // %RH/min
}

// ClimateMonitor processes samples, maintains a history window, and raises alerts.
type ClimateMonitor interface {
	ProcessSamples(input <-chan sample.Sample)
	// Samples returns the current history, oldest first.
	Samples() []sample.Sample
	// Trends returns n-1 trends for n samples.
	Trends() []Trend
	Latest() (sample.Sample, bool)
	OnUpdate(func(samples []sample.Sample, trends []Trend))
	OnAlert(func(alert Alert))
}

// Monitor implements ClimateMonitor.
// Samples are dropped from the front once they fall out of the time window;
// trends[i] always describes the change from samples[i] to samples[i+1].
type Monitor struct {
	samples []sample.Sample
	trends  []Trend
	rules   []ruleState

	// Thread safety
	mu sync.RWMutex

	// Callbacks
	callbacks      []func(samples []sample.Sample, trends []Trend)
	alertCallbacks []func(alert Alert)
	cbMu           sync.RWMutex

	window time.Duration

	// Shutdown control
	shutdown bool // Set to true when input channel closes, prevents further callbacks
}

// New creates a new Monitor with the configured window and alert rules.
func New(cfg *config.Config) *Monitor {
	m := &Monitor{
		samples: make([]sample.Sample, 0),
		trends:  make([]Trend, 0),
		window:  cfg.Measurement.Window,
	}
	m.SetRules(RulesFromConfig(cfg.Alerts))
	return m
}

// SetRules replaces the alert rules. All rules start armed.
func (m *Monitor) SetRules(rules []Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = make([]ruleState, len(rules))
	for i, r := range rules {
		m.rules[i] = ruleState{Rule: r}
	}
}

// SetWindow changes the history window. It applies from the next sample.
func (m *Monitor) SetWindow(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = window
}

// Rules returns the current alert rules.
func (m *Monitor) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Rule, len(m.rules))
	for i, st := range m.rules {
		result[i] = st.Rule
	}
	return result
}

// ProcessSamples consumes samples until the input channel closes, then
// stops notifying callbacks.
func (m *Monitor) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}
	// Channel closed - mark as shutdown to prevent further callbacks
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample appends a sample, trims the window, updates trends and evaluates rules.
func (m *Monitor) processSample(s sample.Sample) {
	m.mu.Lock()

	m.samples = append(m.samples, s)

	// Update trend for the new pair before trimming so the correspondence holds
	if n := len(m.samples); n >= 2 {
		prev := m.samples[n-2]
		dt := s.Timestamp.Sub(prev.Timestamp).Minutes()
		if dt > 0 {
			m.trends = append(m.trends, Trend{
				Timestamp:   s.Timestamp,
				Temperature: (s.Temperature - prev.Temperature) / dt,
				Humidity:    (s.Humidity - prev.Humidity) / dt,
			})
		} else {
			// Same or reversed timestamp: treat as flat
			m.trends = append(m.trends, Trend{Timestamp: s.Timestamp})
		}
	}

	m.trim(s.Timestamp)

	var alerts []Alert
	for i := range m.rules {
		if a, ok := m.rules[i].update(s); ok {
			alerts = append(alerts, a)
		}
	}

	shouldNotify := !m.shutdown

	// Release lock before calling callbacks (they take their own read locks)
	m.mu.Unlock()

	if !shouldNotify {
		return
	}
	for _, a := range alerts {
		m.notifyAlert(a)
	}
	m.notifyCallbacks()
}

// trim removes samples older than the window, keeping trends aligned.
func (m *Monitor) trim(now time.Time) {
	if m.window <= 0 {
		return
	}

	cutoff := now.Add(-m.window)
	cutoffIndex := 0
	for cutoffIndex < len(m.samples) && m.samples[cutoffIndex].Timestamp.Before(cutoff) {
		cutoffIndex++
	}
	if cutoffIndex == 0 {
		return
	}

	m.samples = m.samples[cutoffIndex:]
	if cutoffIndex <= len(m.trends) {
		m.trends = m.trends[cutoffIndex:]
	} else {
		m.trends = m.trends[:0]
	}
}

// Samples returns a copy of the current samples buffer.
func (m *Monitor) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Trends returns a copy of the current trends buffer.
func (m *Monitor) Trends() []Trend {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Trend, len(m.trends))
	copy(result, m.trends)
	return result
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() (sample.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.samples) == 0 {
		return sample.Sample{}, false
	}
	return m.samples[len(m.samples)-1], true
}

// Stale reports whether the latest sample is older than maxAge at now.
// A monitor without samples is stale.
func (m *Monitor) Stale(now time.Time, maxAge time.Duration) bool {
	latest, ok := m.Latest()
	if !ok {
		return true
	}
	return now.Sub(latest.Timestamp) > maxAge
}

// OnUpdate registers a callback function that will be called when samples are updated.
// The callback receives copies of the current samples and trends.
// The callback should copy data quickly and return as fast as possible.
func (m *Monitor) OnUpdate(callback func(samples []sample.Sample, trends []Trend)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// OnAlert registers a callback for threshold crossings.
func (m *Monitor) OnAlert(callback func(alert Alert)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.alertCallbacks = append(m.alertCallbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent again.
// This should be called before starting a new measurement chain.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered update callbacks with current data.
func (m *Monitor) notifyCallbacks() {
	samplesCopy := m.Samples()
	trendsCopy := m.Trends()

	m.cbMu.RLock()
	callbacks := make([]func(samples []sample.Sample, trends []Trend), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	// Invoke callbacks without holding any locks
	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, trendsCopy)
		}
	}
}

func (m *Monitor) notifyAlert(a Alert) {
	m.cbMu.RLock()
	callbacks := make([]func(alert Alert), len(m.alertCallbacks))
	copy(callbacks, m.alertCallbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(a)
		}
	}
}
