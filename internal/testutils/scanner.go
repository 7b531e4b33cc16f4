package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srg/moonlink/internal/device"
)

// ScanStep is one scripted event of a FakeScanner
type ScanStep struct {
	After         time.Duration // delay since the previous step
	Advertisement device.Advertisement
	Err           error // ends the scan with this error
	AfterStop     bool  // deliver only once the scan context is done
}

// FakeScanner is a scripted device.Scanner. Like real radios it keeps scanning until its
// context is done, unless a step ends it with an error.
type FakeScanner struct {
	Steps []ScanStep

	starts  atomic.Int32
	stops   atomic.Int32
	active  atomic.Int32
	mu      sync.Mutex
	started chan struct{}
}

var _ device.Scanner = (*FakeScanner)(nil)

// NewFakeScanner creates a scanner that replays steps on every Scan call
func NewFakeScanner(steps ...ScanStep) *FakeScanner {
	return &FakeScanner{Steps: steps, started: make(chan struct{}, 16)}
}

func (s *FakeScanner) Scan(ctx context.Context, _ bool, handler func(device.Advertisement)) error {
	s.starts.Add(1)
	s.active.Add(1)
	defer func() {
		s.active.Add(-1)
		s.stops.Add(1)
	}()

	select {
	case s.started <- struct{}{}:
	default:
	}

	s.mu.Lock()
	steps := append([]ScanStep(nil), s.Steps...)
	s.mu.Unlock()

	for _, step := range steps {
		if step.AfterStop {
			<-ctx.Done()
			if step.After > 0 {
				time.Sleep(step.After)
			}
			if step.Advertisement != nil {
				handler(step.Advertisement)
			}
			return ctx.Err()
		}

		if step.After > 0 {
			select {
			case <-time.After(step.After):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if step.Err != nil {
			return step.Err
		}
		if step.Advertisement != nil {
			handler(step.Advertisement)
		}
	}

	<-ctx.Done()
	return ctx.Err()
}

// Starts returns how many scans were started
func (s *FakeScanner) Starts() int { return int(s.starts.Load()) }

// Stops returns how many scans have returned
func (s *FakeScanner) Stops() int { return int(s.stops.Load()) }

// Active reports whether a scan is still running
func (s *FakeScanner) Active() bool { return s.active.Load() > 0 }

// Started is signalled (best effort) each time a scan begins
func (s *FakeScanner) Started() <-chan struct{} { return s.started }
