package main

import (
	"log"

	"fyne.io/fyne/v2"

	"github.com/itohio/gohtu/pkg/monitor"
)

// handleAlert reports a threshold crossing. Called from the monitor goroutine.
func handleAlert(state *appState, a monitor.Alert) {
	log.Printf("Alert: %s", a)

	fyne.Do(func() {
		state.scopeWidget.AddAlert(a)
		state.app.SendNotification(fyne.NewNotification("Climate alert", a.String()))
	})
}

// applyAlerts pushes the configured alert rules to the monitor and the scope.
func applyAlerts(state *appState) {
	rules := monitor.RulesFromConfig(state.cfg.Alerts)
	state.monitor.SetRules(rules)
	state.scopeWidget.SetRules(rules)
}
