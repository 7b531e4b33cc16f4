package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/srg/moonlink/internal/groutine"
	"github.com/srg/moonlink/internal/link"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// connectProgress renders a single self-rewriting line while a connect attempt runs:
// the current phase and the seconds left of the attempt's budget. It follows lifecycle
// events and stops on its own once the attempt settles.
type connectProgress struct {
	out    io.Writer
	label  string
	budget time.Duration

	mu      sync.Mutex
	phase   string
	started time.Time
	stop    chan struct{}
	done    chan struct{}
	stopped bool
}

func newConnectProgress(out io.Writer, label string, budget time.Duration) *connectProgress {
	return &connectProgress{
		out:    out,
		label:  label,
		budget: budget,
		phase:  statusPhase(link.StatusScanning),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start draws the first line and begins refreshing it
func (p *connectProgress) Start() {
	p.mu.Lock()
	p.started = time.Now()
	p.render(p.phase, 0)
	p.mu.Unlock()

	groutine.Go(context.Background(), "connect-progress", func(context.Context) {
		defer close(p.done)
		ticker := time.NewTicker(progressUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.mu.Lock()
				if !p.stopped {
					p.render(p.phase, p.remaining())
				}
				p.mu.Unlock()
			}
		}
	})
}

// Observe follows a lifecycle event; connected and error end the line
func (p *connectProgress) Observe(ev link.Event) {
	p.mu.Lock()
	p.phase = statusPhase(ev.Status)
	p.mu.Unlock()

	if ev.Status == link.StatusConnected || ev.Status == link.StatusError {
		p.Stop()
	}
}

// Stop clears the line. Safe to call more than once.
func (p *connectProgress) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	p.mu.Unlock()

	if !p.started.IsZero() {
		<-p.done
	}
	fmt.Fprint(p.out, clearLineSequence)
}

// remaining rounds the unused budget to whole seconds. p.mu must be held.
func (p *connectProgress) remaining() int {
	left := p.budget - time.Since(p.started)
	if left <= 0 {
		return 0
	}
	return int(left.Seconds() + 0.5)
}

// render writes the line. p.mu must be held.
func (p *connectProgress) render(phase string, seconds int) {
	if seconds > 0 {
		fmt.Fprintf(p.out, "\r%s (%s %ds)   ", p.label, phase, seconds)
		return
	}
	fmt.Fprintf(p.out, "\r%s (%s...)   ", p.label, phase)
}

// statusPhase names a status the way the progress line shows it
func statusPhase(s link.Status) string {
	switch s {
	case link.StatusScanning:
		return "Scanning"
	case link.StatusConnecting:
		return "Connecting"
	case link.StatusConnected:
		return "Connected"
	case link.StatusDisconnected:
		return "Disconnected"
	case link.StatusError:
		return "Failed"
	default:
		return "Idle"
	}
}
