package goble

import (
	"context"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
)

// Adapter drives a single ble.Device for both scanning and dialing.
// The host device is created lazily on first use; a failed creation is retried on the
// next call so a radio switched on later is picked up.
type Adapter struct {
	mu     sync.Mutex
	dev    ble.Device
	logger *logrus.Logger
}

var _ device.Backend = (*Adapter)(nil)

// NewAdapter creates a go-ble backed radio
func NewAdapter(logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{logger: logger}
}

func (a *Adapter) device() (ble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dev != nil {
		return a.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		a.logger.WithField("error", err).Error("Failed to create BLE device")
		return nil, NormalizeError(err)
	}
	a.dev = dev
	return dev, nil
}

// Scan wraps the raw ble.Device.Scan to convert ble.Advertisement to the device.Advertisement
func (a *Adapter) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	dev, err := a.device()
	if err != nil {
		return err
	}

	// Adapter: convert a handler expecting a device.Advertisement to the one expecting ble.Advertisement
	bleHandler := func(adv ble.Advertisement) {
		handler(NewBLEAdvertisement(adv))
	}
	return NormalizeError(dev.Scan(ctx, allowDup, bleHandler))
}

// Dial connects to the advertised peer
func (a *Adapter) Dial(ctx context.Context, adv device.Advertisement) (device.Client, error) {
	if strings.TrimSpace(adv.Addr()) == "" {
		return nil, device.Newf(device.Radio, "device address is empty")
	}

	dev, err := a.device()
	if err != nil {
		return nil, err
	}

	addr := ble.NewAddr(adv.Addr())
	if wrapped, ok := adv.(*BLEAdvertisement); ok {
		addr = wrapped.Unwrap().Addr()
	}

	a.logger.WithField("address", adv.Addr()).Debug("Dialing BLE device...")
	cl, err := dev.Dial(ctx, addr)
	if err != nil {
		return nil, NormalizeError(err)
	}
	return newClient(cl, a.logger), nil
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
