package scope

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plotArea is the rectangle inside the axis labels.
type plotArea struct {
	x, y, width, height float32
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.grid.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Size changed, redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	rules := r.scope.rules
	alerts := r.scope.alerts
	tAxis := r.scope.temperatureAxis
	hAxis := r.scope.humidityAxis
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep grid)
	r.objects = []fyne.CanvasObject{r.grid}

	// Margins leave room for both axes
	p := plotArea{x: 60, y: 20}
	p.width = size.Width - p.x - 60
	p.height = size.Height - p.y - 40

	r.drawGrid(p, tAxis, hAxis, xMin, xMax)
	r.drawThresholds(p, rules, tAxis, hAxis)
	r.drawAlerts(p, alerts, xMin, xMax)

	if len(samples) > 1 {
		r.drawTrace(p, samples, tAxis, xMin, xMax, temperatureColor, func(s sample.Sample) float64 { return s.Temperature })
		r.drawTrace(p, samples, hAxis, xMin, xMax, humidityColor, func(s sample.Sample) float64 { return s.Humidity })
	}

	if len(samples) > 0 {
		r.drawLatest(p, samples[len(samples)-1])
	}
}

// drawGrid draws the oscilloscope-style grid with temperature labels on the
// left and humidity labels on the right.
func (r *scopeRenderer) drawGrid(p plotArea, tAxis, hAxis axis, xMin, xMax time.Time) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}

	numHLines := 8
	for i := 0; i < numHLines+1; i++ {
		y := p.y + float32(i)*p.height/float32(numHLines)
		r.addLine(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y), gridColor, 1)

		left := canvas.NewText(formatTemperature(tAxis.label(i, numHLines)), temperatureColor)
		left.TextSize = 10
		left.Alignment = fyne.TextAlignTrailing
		left.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, left)

		right := canvas.NewText(formatHumidity(hAxis.label(i, numHLines)), humidityColor)
		right.TextSize = 10
		right.Alignment = fyne.TextAlignLeading
		right.Move(fyne.NewPos(p.x+p.width+5, y-6))
		r.objects = append(r.objects, right)
	}

	numVLines := 10
	for i := 0; i < numVLines+1; i++ {
		x := p.x + float32(i)*p.width/float32(numVLines)
		r.addLine(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.height), gridColor, 1)

		offset := time.Duration(float64(i) * float64(xMax.Sub(xMin)) / float64(numVLines))
		text := canvas.NewText(formatTime(offset), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws one quantity as connected line segments.
func (r *scopeRenderer) drawTrace(p plotArea, samples []sample.Sample, a axis, xMin, xMax time.Time, c color.Color, value func(sample.Sample) float64) {
	var prev fyne.Position
	for i, s := range samples {
		pos := fyne.NewPos(
			projectTime(s.Timestamp, xMin, xMax, p.x, p.width),
			a.project(value(s), p.y, p.height),
		)
		if i > 0 {
			r.addLine(prev, pos, c, 1.5)
		}
		prev = pos
	}
}

// drawThresholds draws a horizontal line per alert rule on its quantity's axis.
func (r *scopeRenderer) drawThresholds(p plotArea, rules []monitor.Rule, tAxis, hAxis axis) {
	for _, rule := range rules {
		a, c := hAxis, humidityColor
		if isTemperatureRule(rule) {
			a, c = tAxis, temperatureColor
		}
		dim := color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: 255}

		y := a.project(rule.Threshold, p.y, p.height)
		r.addLine(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y), dim, 1)

		text := canvas.NewText(rule.Kind, dim)
		text.TextSize = 9
		text.Move(fyne.NewPos(p.x+5, y-12))
		r.objects = append(r.objects, text)
	}
}

// drawAlerts marks fired alerts with vertical lines.
func (r *scopeRenderer) drawAlerts(p plotArea, alerts []monitor.Alert, xMin, xMax time.Time) {
	for _, a := range alerts {
		if a.Time.Before(xMin) || a.Time.After(xMax) {
			continue
		}
		x := projectTime(a.Time, xMin, xMax, p.x, p.width)
		r.addLine(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.height), alertColor, 1)
	}
}

// drawLatest prints the most recent values in the top left corner.
func (r *scopeRenderer) drawLatest(p plotArea, s sample.Sample) {
	t := canvas.NewText(formatTemperature(s.Temperature), temperatureColor)
	t.TextSize = 14
	t.TextStyle = fyne.TextStyle{Bold: true}
	t.Move(fyne.NewPos(p.x+10, p.y+5))

	h := canvas.NewText(formatHumidity(s.Humidity), humidityColor)
	h.TextSize = 14
	h.TextStyle = fyne.TextStyle{Bold: true}
	h.Move(fyne.NewPos(p.x+90, p.y+5))

	r.objects = append(r.objects, t, h)
}

func (r *scopeRenderer) addLine(from, to fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}
