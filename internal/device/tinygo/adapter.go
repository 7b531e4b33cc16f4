// Package tinyble adapts tinygo.org/x/bluetooth to the device abstraction. It is the
// radio used on Linux (BlueZ over D-Bus) and Windows.
package tinyble

import (
	"context"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
	"github.com/srg/moonlink/internal/groutine"
	"tinygo.org/x/bluetooth"
)

// stopRetryInterval paces StopScan retries while the scan has not started yet
const stopRetryInterval = 10 * time.Millisecond

// host is the part of *bluetooth.Adapter the backend drives
type host interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
	Connect(address bluetooth.Address, params bluetooth.ConnectionParams) (bluetooth.Device, error)
}

// Adapter drives a tinygo bluetooth adapter for both scanning and dialing
type Adapter struct {
	adapter host
	logger  *logrus.Logger

	mu      sync.Mutex
	enabled bool

	// addresses remembers the platform address of every advertiser seen, so Dial can
	// reconnect from the string form alone.
	addresses *hashmap.Map[string, bluetooth.Address]
}

var _ device.Backend = (*Adapter)(nil)

// NewAdapter wraps the given adapter; nil selects bluetooth.DefaultAdapter
func NewAdapter(adapter *bluetooth.Adapter, logger *logrus.Logger) *Adapter {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	return newAdapter(adapter, logger)
}

func newAdapter(adapter host, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{
		adapter:   adapter,
		logger:    logger,
		addresses: hashmap.New[string, bluetooth.Address](),
	}
}

func (a *Adapter) enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.enabled {
		return nil
	}
	if err := a.adapter.Enable(); err != nil {
		a.logger.WithField("error", err).Error("Failed to enable bluetooth adapter")
		return device.NormalizeError(err)
	}
	a.enabled = true
	return nil
}

// Scan runs until ctx is done. tinygo scans are not context aware, so a named goroutine
// stops the scan when ctx ends, retrying until Scan returns: a StopScan issued before the
// host has started scanning is rejected and would leave Scan running.
func (a *Adapter) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	if err := a.enable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)

	groutine.Go(ctx, "tinygo-scan-stopper", func(ctx context.Context) {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}

		ticker := time.NewTicker(stopRetryInterval)
		defer ticker.Stop()
		for {
			err := a.adapter.StopScan()
			if err == nil {
				return
			}
			a.logger.WithField("error", err).Debug("StopScan failed, retrying")
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	})

	err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		if ctx.Err() != nil {
			return
		}
		addr := result.Address.String()
		_, seen := a.addresses.GetOrInsert(addr, result.Address)
		if seen && !allowDup {
			return
		}
		handler(&advertisement{result: result})
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return device.NormalizeError(err)
}

// Dial connects to a peer previously seen by Scan
func (a *Adapter) Dial(ctx context.Context, adv device.Advertisement) (device.Client, error) {
	if err := a.enable(); err != nil {
		return nil, err
	}

	var addr bluetooth.Address
	if tadv, ok := adv.(*advertisement); ok {
		addr = tadv.result.Address
	} else if known, ok := a.addresses.Get(adv.Addr()); ok {
		addr = known
	} else {
		return nil, device.Newf(device.Radio, "address %s was never seen by this adapter", adv.Addr())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.logger.WithField("address", adv.Addr()).Debug("Connecting to BLE device...")
	dev, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, device.NormalizeError(err)
	}
	return &client{dev: dev, address: adv.Addr(), logger: a.logger}, nil
}

type advertisement struct {
	result bluetooth.ScanResult
}

func (a *advertisement) LocalName() string { return a.result.LocalName() }
func (a *advertisement) Addr() string      { return a.result.Address.String() }
func (a *advertisement) RSSI() int         { return int(a.result.RSSI) }

// Connectable is not reported by every tinygo host; peers are assumed connectable.
func (a *advertisement) Connectable() bool  { return true }
func (a *advertisement) Services() []string { return nil }
