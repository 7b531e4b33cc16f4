package goble

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/moonlink/internal/device"
)

// NormalizeError maps go-ble errors into the device error taxonomy.
// Context errors pass through untouched so callers can tell a stopped scan from a failure.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// CoreBluetooth reports its manager state as a number: 3 = unauthorized, 4 = powered off.
	msg := err.Error()
	switch {
	case containsAll(msg, "invalid state", "have=3"):
		return fmt.Errorf("%w: %v", device.ErrPermissionDenied, err)
	case containsAll(msg, "invalid state", "have=4"):
		return fmt.Errorf("%w: %v", device.ErrRadio, err)
	default:
		return device.NormalizeError(err)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !containsIgnoreCase(s, p) {
			return false
		}
	}
	return true
}
