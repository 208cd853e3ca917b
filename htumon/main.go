package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/monitor"
	"github.com/itohio/gohtu/pkg/sample"
	"github.com/itohio/gohtu/pkg/scope"
	"github.com/itohio/gohtu/pkg/telemetry"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use mocked device instead of serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}

	application := app.NewWithID("com.itohio.gohtu")

	window := application.NewWindow("HTU21D Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		monitor:    monitor.New(cfg),
		app:        application,
		window:     window,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(cfg)
	state.scopeWidget.SetRules(state.monitor.Rules())

	registerCallbacks(state)

	stop := make(chan struct{})
	go watchStale(state, stop)
	window.SetOnClosed(func() {
		close(stop)
		closeMeasurementChain(state.chain)
	})

	window.SetContent(container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		state.scopeWidget,
	))
	window.ShowAndRun()
}

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device         telemetry.Device
	samplesStream  <-chan sample.Sample
	monitorRoutine chan struct{} // Closed when monitor goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	device      telemetry.Device
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	app         fyne.App
	window      fyne.Window
	connectBtn  *widget.Button
	latest      *widget.Label
	stale       *widget.Label
	useMock     bool
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the toolbar with Connect and Settings buttons and the latest values.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.latest = widget.NewLabelWithStyle(latestText(sample.Sample{}, false), fyne.TextAlignTrailing, fyne.TextStyle{Bold: true})
	state.stale = widget.NewLabel(staleText(true))
	state.stale.Importance = widget.WarningImportance

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn),   // left
		container.NewHBox(state.latest, state.stale), // right
		nil, // center (spacer)
	)
}

// registerCallbacks wires the monitor to the display. Updates are throttled
// to ~60 FPS.
func registerCallbacks(state *appState) {
	const updateInterval = 16 * time.Millisecond

	state.monitor.OnUpdate(func(samples []sample.Sample, trends []monitor.Trend) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		var latest sample.Sample
		if len(samples) > 0 {
			latest = samples[len(samples)-1]
		}
		text := latestText(latest, len(samples) > 0)
		if len(trends) > 0 {
			text += " " + trendText(trends[len(trends)-1])
		}

		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples)
			state.latest.SetText(text)
			setStale(state, false)
		})
	})

	state.monitor.OnAlert(func(a monitor.Alert) {
		handleAlert(state, a)
	})
}

// watchStale flags the display once the latest sample is older than stale_after.
func watchStale(state *appState, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			fyne.Do(func() {
				refreshStale(state, now)
			})
		}
	}
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the readings channel
	if chain.device != nil {
		chain.device.Close()
	}

	// The monitor goroutine exits when samplesStream closes, which happens
	// once the converters finish draining
	if chain.monitorRoutine != nil {
		<-chain.monitorRoutine
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeMeasurementChain(state.chain)
		state.chain = nil
		state.device = nil
		setStale(state, true)
		if state.useMock {
			log.Printf("Disconnected from mocked device")
		} else {
			log.Printf("Disconnected from serial port")
		}
		return
	}

	var device telemetry.Device
	if state.useMock {
		device = telemetry.NewMock(&state.cfg.Mock)
		log.Printf("Using mocked device")
	} else {
		device = telemetry.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, telemetry.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to connect to mocked device: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", portName(state.cfg.Serial.Port), err), state.window)
		}
		return
	}
	state.device = device
	if serial, ok := device.(*telemetry.Serial); ok {
		log.Printf("Connected to serial port: %s", serial.Port())
	} else {
		log.Printf("Connected to mocked device")
	}

	// Reset monitor shutdown flag for new chain
	state.monitor.ResetShutdown()

	// Chain converters: pairing always, averaging only when enabled
	samplesStream := sample.NewConverter(500)(device.Readings())
	if state.cfg.Measurement.AverageSamples > 0 {
		samplesStream = sample.NewAveragingConverter(state.cfg.Measurement.AverageSamples, 500)(samplesStream)
	}

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		state.monitor.ProcessSamples(samplesStream)
	}()

	state.chain = &measurementChain{
		device:         device,
		samplesStream:  samplesStream,
		monitorRoutine: monitorDone,
	}
}

// reconnect restarts the measurement chain if it is running.
func reconnect(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	handleConnect(state) // disconnect
	handleConnect(state) // connect with the new settings
}

func portName(port string) string {
	if port == "" {
		return "auto-detected port"
	}
	return port
}
