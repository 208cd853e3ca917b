package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/telemetry"
)

var alertKinds = []struct {
	kind  string
	label string
}{
	{config.TemperatureAbove, "Temperature above (°C)"},
	{config.TemperatureBelow, "Temperature below (°C)"},
	{config.HumidityAbove, "Humidity above (%RH)"},
	{config.HumidityBelow, "Humidity below (%RH)"},
	{config.TemperatureEqual, "Temperature equal (°C)"},
	{config.HumidityEqual, "Humidity equal (%RH)"},
}

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createReaderTab(state),
		createMeasurementTab(state),
		createAlertsTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func saveConfig(state *appState) bool {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	const autoDetect = "Auto-detect"

	portOptions := []string{autoDetect}
	portMap := map[string]string{autoDetect: ""} // Map display name to actual port name

	ports, err := telemetry.Ports()
	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := autoDetect
	found := currentPort == ""
	for _, opt := range portOptions {
		if currentPort != "" && portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	portSelect.SetSelected(currentDisplay)

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			selectedPort, ok := portMap[portSelect.Selected]
			if !ok {
				selectedPort = portSelect.Selected // Fallback to selected text
			}

			changed := state.cfg.Serial.Port != selectedPort
			state.cfg.Serial.Port = selectedPort
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				changed = changed || state.cfg.Serial.BaudRate != baud
				state.cfg.Serial.BaudRate = baud
			}
			if !saveConfig(state) {
				return
			}

			// Restart the measurement chain on the new port
			if changed && !state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createReaderTab creates the Reader configuration tab.
func createReaderTab(state *appState) *container.TabItem {
	staleEntry := widget.NewEntry()
	staleEntry.SetText(state.cfg.Reader.StaleAfter.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Stale After", Widget: staleEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(staleEntry.Text); err == nil && d > 0 {
				state.cfg.Reader.StaleAfter = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Reader", form)
}

// createMeasurementTab creates the Measurement configuration tab.
func createMeasurementTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(state.cfg.Measurement.Window.String())

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(strconv.Itoa(state.cfg.Measurement.AverageSamples))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "History Window", Widget: windowEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
		},
		OnSubmit: func() {
			if w, err := time.ParseDuration(windowEntry.Text); err == nil && w > 0 {
				state.cfg.Measurement.Window = w
				state.monitor.SetWindow(w)
			}
			averageChanged := false
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil && avg >= 0 {
				averageChanged = state.cfg.Measurement.AverageSamples != avg
				state.cfg.Measurement.AverageSamples = avg
			}
			if !saveConfig(state) {
				return
			}
			// Averaging is part of the chain, rebuild it
			if averageChanged {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Measurement", form)
}

// createAlertsTab creates the Alerts tab with one optional threshold per rule kind.
func createAlertsTab(state *appState) *container.TabItem {
	checks := make([]*widget.Check, len(alertKinds))
	entries := make([]*widget.Entry, len(alertKinds))
	items := make([]*widget.FormItem, 0, len(alertKinds))

	for i, k := range alertKinds {
		entry := widget.NewEntry()
		check := widget.NewCheck("", nil)
		for _, a := range state.cfg.Alerts {
			if a.Kind == k.kind {
				check.SetChecked(true)
				entry.SetText(strconv.FormatFloat(a.Threshold, 'f', -1, 64))
				break
			}
		}
		checks[i] = check
		entries[i] = entry
		items = append(items, &widget.FormItem{
			Text:   k.label,
			Widget: container.NewBorder(nil, nil, check, nil, entry),
		})
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			alerts := make([]config.AlertConfig, 0, len(alertKinds))
			for i, k := range alertKinds {
				if !checks[i].Checked {
					continue
				}
				threshold, err := strconv.ParseFloat(entries[i].Text, 64)
				if err != nil {
					dialog.ShowError(fmt.Errorf("%s: invalid threshold %q", k.label, entries[i].Text), state.window)
					return
				}
				alerts = append(alerts, config.AlertConfig{Kind: k.kind, Threshold: threshold})
			}

			state.cfg.Alerts = alerts
			if saveConfig(state) {
				applyAlerts(state)
			}
		},
	}

	return container.NewTabItem("Alerts", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Mock.Interval.String())

	baseTemperatureEntry := widget.NewEntry()
	baseTemperatureEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.BaseTemperature))

	temperatureSwingEntry := widget.NewEntry()
	temperatureSwingEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.TemperatureSwing))

	baseHumidityEntry := widget.NewEntry()
	baseHumidityEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.BaseHumidity))

	humiditySwingEntry := widget.NewEntry()
	humiditySwingEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.HumiditySwing))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	failEveryEntry := widget.NewEntry()
	failEveryEntry.SetText(strconv.Itoa(state.cfg.Mock.FailEvery))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sampling Interval", Widget: intervalEntry},
			{Text: "Base Temperature (°C)", Widget: baseTemperatureEntry},
			{Text: "Temperature Swing (°C)", Widget: temperatureSwingEntry},
			{Text: "Base Humidity (%RH)", Widget: baseHumidityEntry},
			{Text: "Humidity Swing (%RH)", Widget: humiditySwingEntry},
			{Text: "Period", Widget: periodEntry},
			{Text: "Fail Every N (0=never)", Widget: failEveryEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(intervalEntry.Text); err == nil && d > 0 {
				state.cfg.Mock.Interval = d
			}
			if v, err := strconv.ParseFloat(baseTemperatureEntry.Text, 64); err == nil {
				state.cfg.Mock.BaseTemperature = v
			}
			if v, err := strconv.ParseFloat(temperatureSwingEntry.Text, 64); err == nil {
				state.cfg.Mock.TemperatureSwing = v
			}
			if v, err := strconv.ParseFloat(baseHumidityEntry.Text, 64); err == nil {
				state.cfg.Mock.BaseHumidity = v
			}
			if v, err := strconv.ParseFloat(humiditySwingEntry.Text, 64); err == nil {
				state.cfg.Mock.HumiditySwing = v
			}
			if d, err := time.ParseDuration(periodEntry.Text); err == nil && d > 0 {
				state.cfg.Mock.Period = d
			}
			if n, err := strconv.Atoi(failEveryEntry.Text); err == nil && n >= 0 {
				state.cfg.Mock.FailEvery = n
			}
			if !saveConfig(state) {
				return
			}
			if state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
