// Package locator finds the board among nearby advertisers.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
)

// DefaultNameToken is the advertised-name fragment identifying the board
const DefaultNameToken = "moonboard"

var errScanTimeout = errors.New("scan timeout")

// Predicate decides whether an advertised name identifies the wanted peer
type Predicate func(name string) bool

// NameContains matches names containing token, case-insensitively. Nameless advertisers
// never match.
func NameContains(token string) Predicate {
	token = strings.ToLower(token)
	return func(name string) bool {
		return name != "" && strings.Contains(strings.ToLower(name), token)
	}
}

// Locator scans for a single peer
type Locator struct {
	scanner device.Scanner
	logger  *logrus.Logger
}

// New creates a Locator scanning through scanner
func New(scanner device.Scanner, logger *logrus.Logger) *Locator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Locator{scanner: scanner, logger: logger}
}

// Find scans until an advertiser whose name satisfies match shows up, timeout elapses or
// ctx is cancelled, and always stops the scan before returning. A nil match uses
// NameContains(DefaultNameToken); a non-positive timeout scans until ctx is done.
func (l *Locator) Find(ctx context.Context, match Predicate, timeout time.Duration) (device.Advertisement, error) {
	if match == nil {
		match = NameContains(DefaultNameToken)
	}

	var (
		scanCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		scanCtx, cancel = context.WithTimeoutCause(ctx, timeout, errScanTimeout)
	} else {
		scanCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		mu      sync.Mutex
		settled bool
		found   device.Advertisement
	)
	others := hashmap.New[string, string]()

	handler := func(adv device.Advertisement) {
		name := adv.LocalName()
		if !match(name) {
			if _, loaded := others.GetOrInsert(adv.Addr(), name); !loaded {
				l.logger.WithFields(logrus.Fields{
					"address": adv.Addr(),
					"name":    name,
					"rssi":    adv.RSSI(),
				}).Debug("Ignoring non-matching advertiser")
			}
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if settled || scanCtx.Err() != nil {
			l.logger.WithField("address", adv.Addr()).Debug("Ignoring advertisement received after scan settled")
			return
		}
		settled = true
		found = adv
		cancel()
	}

	l.logger.WithField("timeout", timeout).Info("Scanning for device...")
	err := l.scanner.Scan(scanCtx, true, handler)

	mu.Lock()
	settled = true
	result := found
	mu.Unlock()

	if result != nil {
		others.Del(result.Addr())
		l.logger.WithFields(logrus.Fields{
			"address": result.Addr(),
			"name":    result.LocalName(),
			"rssi":    result.RSSI(),
		}).Info("Found device")
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		l.logger.WithField("error", ctxErr).Debug("Scan cancelled by caller")
		return nil, ctxErr
	}

	if err != nil && !isContextError(err) {
		l.logger.WithField("error", err).Warn("Scan failed")
		switch device.KindOf(err) {
		case device.PermissionDenied, device.Radio, device.Unsupported:
			return nil, fmt.Errorf("scan failed: %w", err)
		default:
			return nil, fmt.Errorf("scan failed: %w", device.Wrap(device.Radio, err))
		}
	}

	if errors.Is(context.Cause(scanCtx), errScanTimeout) {
		l.logger.WithField("other_devices", others.Len()).Info("Scan timed out")
	}
	return nil, device.Newf(device.DeviceNotFound,
		"no matching device found within %s (%d other devices seen)", timeout, others.Len())
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
