package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/gohtu/pkg/sampler"
)

// Kind identifies the quantity carried by a Reading.
type Kind uint8

const (
	Temperature Kind = iota + 1
	Humidity
)

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Reading is a single line received from the board.
type Reading struct {
	Timestamp time.Time
	Kind      Kind
	Value     float64 // °C for Temperature, %RH for Humidity
}

// ParseLine parses one line emitted by the firmware.
// Format: <tag>:<value>, where tag is T or H.
// Example: T:21.57
func ParseLine(line string, ts time.Time) (Reading, error) {
	tag, value, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return Reading{}, fmt.Errorf("invalid line format: missing ':' separator")
	}

	var kind Kind
	switch tag {
	case sampler.TagTemperature:
		kind = Temperature
	case sampler.TagHumidity:
		kind = Humidity
	default:
		return Reading{}, fmt.Errorf("unknown tag %q", tag)
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid %s value: %w", kind, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}, fmt.Errorf("invalid %s value: %q is not finite", kind, value)
	}

	return Reading{
		Timestamp: ts,
		Kind:      kind,
		Value:     v,
	}, nil
}
