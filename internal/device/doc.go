// Package device defines the backend-neutral Bluetooth Low Energy abstractions used by
// the board link: advertisements seen while scanning, the dialer that turns an
// advertisement into a connected client, and the GATT services and characteristics
// a client resolves.
//
// Concrete radios live in sub-packages:
//   - go-ble: CoreBluetooth on macOS via github.com/go-ble/ble
//   - tinygo: BlueZ and WinRT via tinygo.org/x/bluetooth
//
// The package also owns the error taxonomy shared by every layer above it. Backend
// errors are mapped into it with NormalizeError so callers only ever test against the
// sentinels declared here.
package device
