package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
)

// latestText formats the most recent sample for the toolbar.
func latestText(s sample.Sample, ok bool) string {
	if !ok {
		return "T: --.-- °C  H: --.-- %"
	}
	return fmt.Sprintf("T: %.2f °C  H: %.2f %%", s.Temperature, s.Humidity)
}

// trendText formats a trend as signed change per minute.
func trendText(t monitor.Trend) string {
	return fmt.Sprintf("(%+.2f °C/min, %+.2f %%/min)", t.Temperature, t.Humidity)
}

func staleText(stale bool) string {
	if stale {
		return "stale"
	}
	return "live"
}

// setStale updates the stale indicator. Must run on the main thread.
func setStale(state *appState, stale bool) {
	state.stale.SetText(staleText(stale))
	if stale {
		state.stale.Importance = widget.WarningImportance
	} else {
		state.stale.Importance = widget.SuccessImportance
	}
	state.stale.Refresh()
}

// refreshStale re-evaluates staleness at now. It reads the settings the
// Reader tab edits, so it must run on the main thread as well.
func refreshStale(state *appState, now time.Time) {
	setStale(state, state.monitor.Stale(now, state.cfg.Reader.StaleAfter))
}
