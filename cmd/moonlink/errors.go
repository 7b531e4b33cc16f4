package main

import (
	"errors"
	"fmt"

	"github.com/srg/moonlink/internal/device"
)

// Command-level errors
var (
	// ErrFlashIncomplete indicates that at least one color of the flash test was not delivered
	ErrFlashIncomplete = errors.New("flash test incomplete")
)

// FormatUserError turns a failure into one line a climber can act on. The underlying
// error is kept at the end for bug reports.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	kind := device.KindOf(err)
	if errors.Is(err, device.ErrTransmit) {
		kind = device.Transmit
	}

	var hint string
	switch kind {
	case device.PermissionDenied:
		hint = "Bluetooth permission denied; allow Bluetooth access for this terminal and try again"
	case device.DeviceNotFound:
		hint = "no MoonBoard found nearby; check that the board is powered and not connected to another phone"
	case device.Radio:
		hint = "Bluetooth is unavailable; is Bluetooth turned on?"
	case device.ServiceNotFound:
		hint = "the device found does not look like a MoonBoard (serial service missing)"
	case device.NotConnected:
		hint = "not connected to the board"
	case device.Transmit:
		hint = "the board stopped accepting data; move closer and retry"
	case device.Unsupported:
		hint = "not supported on this platform"
	}

	if hint == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s (%v)", hint, err)
}
