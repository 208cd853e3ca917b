package scope

import (
	"strconv"
	"time"

	"github.com/itohio/gohtu/pkg/sample"
)

// axis is a vertical value range.
type axis struct {
	min, max float64
}

// autoScale returns the range covering values with a 10% margin. Without
// values the fallback range is used.
func autoScale(values []float64, fallbackMin, fallbackMax float64) axis {
	if len(values) == 0 {
		return axis{min: fallbackMin, max: fallbackMax}
	}

	a := axis{min: values[0], max: values[0]}
	for _, v := range values[1:] {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}

	// Add 10% margin
	span := a.max - a.min
	if span == 0 {
		span = 1.0
	}
	margin := span * 0.1
	a.min -= margin
	a.max += margin
	return a
}

// project maps v onto a plot of the given height, top at y.
func (a axis) project(v float64, y, height float32) float32 {
	return y + height - float32((v-a.min)/(a.max-a.min))*height
}

// label returns the value at grid line i of n, counted from the top.
func (a axis) label(i, n int) float64 {
	return a.max - float64(i)*(a.max-a.min)/float64(n)
}

// timeRange returns the time span of samples, at least minWindow wide.
func timeRange(samples []sample.Sample, minWindow time.Duration, now time.Time) (time.Time, time.Time) {
	if len(samples) == 0 {
		return now, now.Add(minWindow)
	}

	xMin := samples[0].Timestamp
	xMax := samples[len(samples)-1].Timestamp
	// Ensure minimum window
	if xMax.Sub(xMin) < minWindow {
		xMax = xMin.Add(minWindow)
	}
	return xMin, xMax
}

// projectTime maps t onto a plot of the given width, left edge at x.
func projectTime(t, xMin, xMax time.Time, x, width float32) float32 {
	span := xMax.Sub(xMin).Seconds()
	if span <= 0 {
		return x
	}
	return x + float32(t.Sub(xMin).Seconds()/span)*width
}

func formatTemperature(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "°C"
}

func formatHumidity(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64) + "%"
}

func formatTime(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return strconv.FormatFloat(d.Hours(), 'f', 1, 64) + "h"
	case d >= time.Minute:
		return strconv.FormatFloat(d.Minutes(), 'f', 1, 64) + "m"
	default:
		return strconv.FormatFloat(d.Seconds(), 'f', 0, 64) + "s"
	}
}
