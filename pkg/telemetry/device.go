package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/gohtu/pkg/sampler"
)

const (
	// DefaultBaudRate matches the firmware UART configuration.
	DefaultBaudRate = int(sampler.DefaultBaudRate)
	// DefaultBufferSize is the default size for the readings channel buffer.
	DefaultBufferSize = 100
)

// Serial represents a connection to the sensor board.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	readings  chan Reading
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial device with the specified port, baud rate, and buffer size.
// An empty port selects the first board found by FindBoard on Connect.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:      port,
		baudRate:  baudRate,
		bufSize:   bufSize,
		readings:  make(chan Reading, bufSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Port returns the port name, resolved after Connect if it was auto-discovered.
func (d *Serial) Port() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.port
}

// Connect connects to the serial port and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	if d.port == "" {
		name, err := FindBoard()
		if err != nil {
			return err
		}
		d.port = name
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	// Drop whatever the board printed before we attached.
	if err := port.ResetInputBuffer(); err != nil {
		log.Printf("Failed to reset input buffer: %v", err)
	}

	d.conn = port
	d.connected = true

	// Start reading lines in a goroutine
	go d.read(port)

	return nil
}

// Close closes the connection and waits for the reader to stop.
// The readings channel is closed once the reader has exited.
func (d *Serial) Close() error {
	d.mu.Lock()

	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	// Cancel context to stop reading goroutine
	d.cancel()

	// Close serial port; this unblocks the scanner
	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port: %w", err)
		}
		d.conn = nil
	}

	d.connected = false
	d.mu.Unlock()

	<-d.done
	return err
}

// Readings returns the channel for reading parsed lines.
func (d *Serial) Readings() <-chan Reading {
	return d.readings
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// read reads lines from r until it fails or the device is closed.
func (d *Serial) read(r io.Reader) {
	defer close(d.done)
	defer close(d.readings)

	pump(d.ctx, r, d.readings)

	// The board went away without Close being called.
	d.mu.Lock()
	if d.connected {
		d.connected = false
		if d.conn != nil {
			d.conn.Close()
			d.conn = nil
		}
	}
	d.mu.Unlock()
}

// pump parses lines from r and sends them to out until r fails or ctx is done.
func pump(ctx context.Context, r io.Reader, out chan<- Reading) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if len(line) == 0 || line == "\r" {
			continue
		}

		reading, err := ParseLine(line, time.Now())
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		// Send reading to channel (non-blocking)
		select {
		case out <- reading:
		case <-ctx.Done():
			return
		default:
			// Channel full, log and skip
			log.Printf("Readings channel full, dropping %s reading", reading.Kind)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		log.Printf("Error reading from serial port: %v", err)
	}
}
