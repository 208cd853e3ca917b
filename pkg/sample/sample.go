package sample

import (
	"log"
	"time"

	"github.com/itohio/gohtu/pkg/telemetry"
)

// Sample represents one paired climate measurement.
type Sample struct {
	Timestamp   time.Time
	Temperature float64 // °C
	Humidity    float64 // %RH
}

// Converter is a function type that converts a Reading channel to a Sample channel.
type Converter func(in <-chan telemetry.Reading) <-chan Sample

// NewConverter creates a converter that pairs temperature and humidity
// lines into Samples. The firmware emits T then H; when one of them is lost
// the last known value of that quantity is reused.
func NewConverter(bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan telemetry.Reading) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var p pairer
			for r := range in {
				if s, ok := p.add(r); ok {
					send(out, s)
				}
			}
			if s, ok := p.flush(); ok {
				send(out, s)
			}
		}()

		return out
	}
}

func send(out chan<- Sample, s Sample) {
	select {
	case out <- s:
	case <-time.After(time.Second):
		log.Printf("Converter output channel full, dropping sample")
	}
}

// pairer tracks the last known value of each quantity and a temperature
// still waiting for its humidity line.
type pairer struct {
	temperature, humidity         float64
	haveTemperature, haveHumidity bool

	pending   bool
	pendingTs time.Time
}

// add consumes one reading and returns a Sample when one is complete.
func (p *pairer) add(r telemetry.Reading) (Sample, bool) {
	switch r.Kind {
	case telemetry.Temperature:
		// A second T without H in between: the previous cycle lost its humidity.
		prev, ok := p.flush()
		p.temperature = r.Value
		p.haveTemperature = true
		p.pending = true
		p.pendingTs = r.Timestamp
		return prev, ok

	case telemetry.Humidity:
		p.humidity = r.Value
		p.haveHumidity = true
		p.pending = false
		if !p.haveTemperature {
			return Sample{}, false
		}
		return Sample{
			Timestamp:   r.Timestamp,
			Temperature: p.temperature,
			Humidity:    p.humidity,
		}, true
	}

	return Sample{}, false
}

// flush emits a pending temperature paired with the last known humidity.
func (p *pairer) flush() (Sample, bool) {
	if !p.pending || !p.haveHumidity {
		return Sample{}, false
	}
	p.pending = false
	return Sample{
		Timestamp:   p.pendingTs,
		Temperature: p.temperature,
		Humidity:    p.humidity,
	}, true
}
