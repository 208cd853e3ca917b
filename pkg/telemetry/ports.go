package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// ErrNoBoard is returned by FindBoard when no known USB serial adapter is attached.
var ErrNoBoard = errors.New("no sensor board found")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
	VID         string
	PID         string
}

// Known USB serial adapters used on the sensor boards.
var (
	boardDescriptions = []string{"Arduino", "USB-SERIAL", "CH340"}
	boardVIDs         = []string{"2341", "1A86"} // Arduino, WCH (CH340)
)

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Product
		if desc == "" {
			desc = d.Name // Use name as description if we can't get more info
		}
		result = append(result, Port{
			Name:        d.Name,
			Description: desc,
			VID:         d.VID,
			PID:         d.PID,
		})
	}

	return result, nil
}

// FindBoard returns the name of the first port that looks like a sensor board.
func FindBoard() (string, error) {
	ports, err := Ports()
	if err != nil {
		return "", err
	}
	if name, ok := matchBoard(ports); ok {
		return name, nil
	}
	return "", ErrNoBoard
}

// matchBoard prefers a description match and falls back to the USB vendor ID.
func matchBoard(ports []Port) (string, bool) {
	for _, p := range ports {
		for _, substr := range boardDescriptions {
			if strings.Contains(p.Description, substr) {
				return p.Name, true
			}
		}
	}
	for _, p := range ports {
		for _, vid := range boardVIDs {
			if strings.EqualFold(p.VID, vid) {
				return p.Name, true
			}
		}
	}
	return "", false
}
