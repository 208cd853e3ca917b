package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/sample"
)

// EqualTolerance is how close a reading must be to the threshold to match an
// equal rule. Readings carry two decimals.
const EqualTolerance = 0.005

// Rule is a threshold on one quantity. Kind is one of the config alert kinds.
type Rule struct {
	Kind      string
	Threshold float64
}

// Alert is emitted when a sample crosses a rule's threshold.
type Alert struct {
	Rule  Rule
	Value float64
	Time  time.Time
}

func (a Alert) String() string {
	return fmt.Sprintf("%s %.2f (threshold %.2f)", a.Rule.Kind, a.Value, a.Rule.Threshold)
}

// RulesFromConfig converts configured alerts to rules.
func RulesFromConfig(alerts []config.AlertConfig) []Rule {
	rules := make([]Rule, 0, len(alerts))
	for _, a := range alerts {
		rules = append(rules, Rule{Kind: a.Kind, Threshold: a.Threshold})
	}
	return rules
}

// check returns the quantity the rule watches and whether it is violated.
func (r Rule) check(s sample.Sample) (float64, bool) {
	switch r.Kind {
	case config.TemperatureAbove:
		return s.Temperature, s.Temperature > r.Threshold
	case config.TemperatureBelow:
		return s.Temperature, s.Temperature < r.Threshold
	case config.HumidityAbove:
		return s.Humidity, s.Humidity > r.Threshold
	case config.HumidityBelow:
		return s.Humidity, s.Humidity < r.Threshold
	case config.TemperatureEqual:
		return s.Temperature, math.Abs(s.Temperature-r.Threshold) < EqualTolerance
	case config.HumidityEqual:
		return s.Humidity, math.Abs(s.Humidity-r.Threshold) < EqualTolerance
	}
	return 0, false
}

// ruleState fires once per excursion and re-arms when the value returns.
type ruleState struct {
	Rule
	fired bool
}

func (st *ruleState) update(s sample.Sample) (Alert, bool) {
	value, violated := st.check(s)
	if !violated {
		st.fired = false
		return Alert{}, false
	}
	if st.fired {
		return Alert{}, false
	}
	st.fired = true
	return Alert{Rule: st.Rule, Value: value, Time: s.Timestamp}, true
}
