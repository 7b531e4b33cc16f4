//go:build !darwin

package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/moonlink/internal/device"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests).
// Only the CoreBluetooth host is wired; other platforms use the tinygo backend.
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return nil, device.Newf(device.Unsupported, "go-ble backend is only available on macOS, use the tinygo backend")
}
