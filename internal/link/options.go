package link

import (
	"context"
	"time"

	"github.com/srg/moonlink/internal/locator"
)

// DefaultScanTimeout bounds how long a connect sequence scans for the board
const DefaultScanTimeout = 30 * time.Second

// DefaultConnectTimeout bounds the dial and service resolution that follow the scan
const DefaultConnectTimeout = 30 * time.Second

// PermissionCheck runs before every scan; an error aborts the connect sequence
type PermissionCheck func(ctx context.Context) error

// Option configures a Manager
type Option func(*Manager)

// WithDeviceName sets the advertised-name fragment the board is matched by
func WithDeviceName(token string) Option {
	return func(m *Manager) {
		if token != "" {
			m.deviceName = token
		}
	}
}

// WithScanTimeout sets the scan bound of a connect sequence
func WithScanTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.scanTimeout = d
		}
	}
}

// WithConnectTimeout sets the bound of the dial and service resolution
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// WithPermissionCheck installs a hook run before scanning
func WithPermissionCheck(fn PermissionCheck) Option {
	return func(m *Manager) { m.permissionCheck = fn }
}

func defaultOptions(m *Manager) {
	m.deviceName = locator.DefaultNameToken
	m.scanTimeout = DefaultScanTimeout
	m.connectTimeout = DefaultConnectTimeout
}
