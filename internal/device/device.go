package device

import (
	"context"
)

// Advertisement is a single advertising report observed while scanning
type Advertisement interface {
	LocalName() string
	Addr() string
	RSSI() int
	Connectable() bool
	Services() []string
}

// Scanner represents a radio capable of scanning for advertisements.
// Scan blocks until ctx is done or the radio fails; handler may be invoked from a
// backend goroutine.
type Scanner interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
}

// Dialer opens a link to a previously advertised peer
type Dialer interface {
	Dial(ctx context.Context, adv Advertisement) (Client, error)
}

// Backend is a radio that can both scan and dial.
type Backend interface {
	Scanner
	Dialer
}

// Client represents an open link to a peer
type Client interface {
	Address() string
	// DiscoverServices returns the services matching filter (all services when filter is empty),
	// each with its characteristics resolved.
	DiscoverServices(ctx context.Context, filter []string) ([]Service, error)
	// Disconnected is closed when the peer drops the link. Backends that cannot observe
	// link loss return nil.
	Disconnected() <-chan struct{}
	Disconnect() error
}

// Service represents a resolved GATT service
type Service interface {
	UUID() string
	Characteristics() []Characteristic
}

// Characteristic is a resolved GATT characteristic
type Characteristic interface {
	UUID() string
	// CanWriteWithoutResponse reports whether the characteristic accepts write commands.
	CanWriteWithoutResponse() bool
	// WriteFrame writes one base64 text frame without waiting for an acknowledgment.
	WriteFrame(frame string) error
}
