package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
)

// Trace colors.
var (
	temperatureColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	humidityColor    = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	alertColor       = color.RGBA{R: 200, G: 40, B: 40, A: 255}
)

// minTimeWindow is the narrowest time axis shown.
const minTimeWindow = 10 * time.Minute

// ScopeWidget is a custom Fyne widget that plots temperature and humidity history.
// Temperature uses the left axis, humidity the right one.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu     sync.RWMutex
	rules  []monitor.Rule
	alerts []monitor.Alert

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	// Auto-scaling
	temperatureAxis axis
	humidityAxis    axis
	xMin, xMax      time.Time

	// Display settings
	maxDisplayPoints int
	maxAlerts        int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		displaySamples:   make([]sample.Sample, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
		maxAlerts:        50,
	}
	s.ExtendBaseWidget(s)
	s.mu.Lock()
	s.updateAutoScale()
	s.mu.Unlock()
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// UpdateData updates the widget with new history.
// This should be called from the monitor callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample) {
	s.mu.Lock()
	s.displaySamples = sample.DownsampleSamples(s.displaySamples, samples, s.maxDisplayPoints)
	s.updateAutoScale()
	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// SetRules sets the alert thresholds drawn as horizontal lines.
func (s *ScopeWidget) SetRules(rules []monitor.Rule) {
	s.mu.Lock()
	s.rules = append(s.rules[:0], rules...)
	s.updateAutoScale()
	s.mu.Unlock()

	s.Refresh()
}

// AddAlert marks an alert on the time axis. Only the most recent alerts are kept.
func (s *ScopeWidget) AddAlert(a monitor.Alert) {
	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	if over := len(s.alerts) - s.maxAlerts; over > 0 {
		s.alerts = s.alerts[over:]
	}
	s.mu.Unlock()

	s.Refresh()
}

// updateAutoScale calculates axis ranges from current data. Caller holds mu.
func (s *ScopeWidget) updateAutoScale() {
	var temperatures, humidities []float64
	for _, r := range s.rules {
		if isTemperatureRule(r) {
			temperatures = append(temperatures, r.Threshold)
		} else {
			humidities = append(humidities, r.Threshold)
		}
	}
	for _, smp := range s.displaySamples {
		temperatures = append(temperatures, smp.Temperature)
		humidities = append(humidities, smp.Humidity)
	}

	s.temperatureAxis = autoScale(temperatures, 15, 30)
	s.humidityAxis = autoScale(humidities, 0, 100)
	s.xMin, s.xMax = timeRange(s.displaySamples, minTimeWindow, time.Now())
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:    s,
		grid:     grid,
		objects:  []fyne.CanvasObject{grid},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}

func isTemperatureRule(r monitor.Rule) bool {
	switch r.Kind {
	case config.TemperatureAbove, config.TemperatureBelow, config.TemperatureEqual:
		return true
	}
	return false
}
