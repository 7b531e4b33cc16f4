// Package link shares one physical connection to the board between any number of
// concurrent logical users. A Manager reference-counts its users, drives the
// scan/connect/disconnect state machine, publishes every transition and serializes
// payload transmission.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
	"github.com/srg/moonlink/internal/eventbus"
	"github.com/srg/moonlink/internal/groutine"
	"github.com/srg/moonlink/internal/locator"
	"github.com/srg/moonlink/internal/transfer"
)

// Locator finds the board
type Locator interface {
	Find(ctx context.Context, match locator.Predicate, timeout time.Duration) (device.Advertisement, error)
}

// Session is the physical link to one peer
type Session interface {
	transfer.ChunkWriter
	Open(ctx context.Context, peer device.Advertisement) error
	Close() error
	Disconnected() <-chan struct{}
}

// Transmitter writes a payload through a ChunkWriter
type Transmitter interface {
	Transmit(ctx context.Context, w transfer.ChunkWriter, text string) error
}

// attempt is an in-flight connect sequence; done is closed once err is final
type attempt struct {
	done chan struct{}
	err  error
}

// Manager is the connection lifecycle manager. Observers run synchronously on the
// publishing goroutine and must not call Acquire, Release or Send.
type Manager struct {
	locator     Locator
	session     Session
	transmitter Transmitter
	bus         *eventbus.Bus[Event]
	logger      *logrus.Logger

	deviceName      string
	scanTimeout     time.Duration
	connectTimeout  time.Duration
	permissionCheck PermissionCheck

	// mu guards the fields below
	mu          sync.Mutex
	refs        int
	attempt     *attempt
	open        bool
	peer        device.Advertisement
	generation  uint64
	stopMonitor context.CancelFunc

	// seq serializes connect, teardown, send and link-loss handling
	seq sync.Mutex

	// pubMu keeps status stores and deliveries in transition order
	pubMu  sync.Mutex
	status atomic.Value
}

// New creates an idle Manager with no owners. A nil bus gets a private one.
func New(loc Locator, sess Session, tx Transmitter, bus *eventbus.Bus[Event], logger *logrus.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if bus == nil {
		bus = eventbus.New[Event]()
	}

	m := &Manager{
		locator:     loc,
		session:     sess,
		transmitter: tx,
		bus:         bus,
		logger:      logger,
	}
	defaultOptions(m)
	for _, opt := range opts {
		opt(m)
	}
	m.status.Store(StatusIdle)
	return m
}

// Acquire registers a logical owner and returns once the connection is usable. The first
// owner (or the first after a teardown or failure) starts the connect sequence; owners
// arriving while it runs share its outcome. The sequence is detached from every caller's
// ctx and bounded by the scan and connect timeouts, so ctx only bounds the wait: an owner
// that gives up gets ctx.Err() while the attempt runs to completion for the others. On
// failure the owner stays registered and must still call Release.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	m.refs++
	refs := m.refs

	if m.open {
		m.mu.Unlock()
		m.logger.WithField("refs", refs).Debug("Connection already established")
		return nil
	}

	a := m.attempt
	if a != nil {
		m.logger.WithField("refs", refs).Debug("Joining in-flight connect attempt")
	} else {
		a = &attempt{done: make(chan struct{})}
		m.attempt = a
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.scanTimeout+m.connectTimeout)
		groutine.Go(attemptCtx, "link-connect", func(ctx context.Context) {
			defer cancel()
			err := m.connect(ctx)

			m.mu.Lock()
			a.err = err
			m.attempt = nil
			close(a.done)
			m.mu.Unlock()
		})
	}
	m.mu.Unlock()

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		m.logger.WithField("error", ctx.Err()).Debug("Owner stopped waiting for connect attempt")
		return ctx.Err()
	}
}

func (m *Manager) connect(ctx context.Context) error {
	m.seq.Lock()
	defer m.seq.Unlock()

	if m.permissionCheck != nil {
		if err := m.permissionCheck(ctx); err != nil {
			if !errors.Is(err, device.ErrPermissionDenied) {
				err = device.Wrap(device.PermissionDenied, err)
			}
			return m.failConnect(StagePermission, err)
		}
	}

	m.emit(Event{Status: StatusScanning})
	peer, err := m.locator.Find(ctx, locator.NameContains(m.deviceName), m.scanTimeout)
	if err != nil {
		return m.failConnect(StageScan, err)
	}

	m.emit(Event{Status: StatusConnecting, Address: peer.Addr()})
	if err := m.session.Open(ctx, peer); err != nil {
		return m.failConnect(StageConnect, err)
	}

	m.mu.Lock()
	m.open = true
	m.peer = peer
	m.generation++
	generation := m.generation
	monitorCtx, stop := context.WithCancel(context.Background())
	m.stopMonitor = stop
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"address": peer.Addr(),
		"name":    peer.LocalName(),
	}).Info("Connected to board")
	m.emit(Event{Status: StatusConnected, Address: peer.Addr()})

	m.monitor(monitorCtx, generation, m.session.Disconnected())
	return nil
}

func (m *Manager) failConnect(stage string, err error) error {
	cerr := &ConnectionError{Stage: stage, Err: err}
	m.logger.WithFields(logrus.Fields{
		"stage": stage,
		"error": err,
	}).Error("Connect sequence failed")
	m.emit(Event{Status: StatusError, Message: cerr.Error()})
	return cerr
}

// monitor drops the session when the peer goes away on its own
func (m *Manager) monitor(ctx context.Context, generation uint64, lost <-chan struct{}) {
	if lost == nil {
		m.logger.Debug("Backend cannot report link loss, monitor not started")
		return
	}

	groutine.Go(ctx, "link-monitor", func(ctx context.Context) {
		select {
		case <-ctx.Done():
			return
		case <-lost:
		}

		m.seq.Lock()
		defer m.seq.Unlock()

		m.mu.Lock()
		if !m.open || m.generation != generation {
			m.mu.Unlock()
			return
		}
		addr := m.dropLocked()
		m.mu.Unlock()

		m.logger.WithField("address", addr).Warn("Connection lost")
		if err := m.session.Close(); err != nil {
			m.logger.WithField("error", err).Debug("Closing lost session returned an error")
		}
		m.emit(Event{Status: StatusError, Message: "connection lost", Address: addr})
	})
}

// dropLocked forgets the open connection and returns its address. m.mu must be held.
func (m *Manager) dropLocked() string {
	var addr string
	if m.peer != nil {
		addr = m.peer.Addr()
	}
	m.open = false
	m.peer = nil
	if m.stopMonitor != nil {
		m.stopMonitor()
		m.stopMonitor = nil
	}
	return addr
}

// Release unregisters a logical owner. The last owner out waits for any in-flight
// connect attempt and then closes the connection. Teardown failures are published,
// never returned. Releasing with no owners is a logged no-op.
func (m *Manager) Release() {
	m.mu.Lock()
	if m.refs == 0 {
		m.mu.Unlock()
		m.logger.Warn("Release called with no active owners, ignoring")
		return
	}
	m.refs--
	refs := m.refs
	a := m.attempt
	m.mu.Unlock()

	if refs > 0 {
		m.logger.WithField("refs", refs).Debug("Connection still in use")
		return
	}

	if a != nil {
		<-a.done
	}

	m.seq.Lock()
	defer m.seq.Unlock()

	m.mu.Lock()
	if m.refs > 0 || !m.open {
		m.mu.Unlock()
		return
	}
	addr := m.dropLocked()
	m.mu.Unlock()

	if err := m.session.Close(); err != nil {
		m.logger.WithFields(logrus.Fields{
			"address": addr,
			"error":   err,
		}).Warn("Disconnect failed")
		m.emit(Event{Status: StatusError, Message: fmt.Sprintf("disconnect failed: %v", err), Address: addr})
		return
	}

	m.logger.WithField("address", addr).Info("Disconnected from board")
	m.emit(Event{Status: StatusDisconnected, Address: addr})
}

// Send transmits payload over the shared connection. Concurrent sends are serialized.
// It fails fast with device.ErrNotConnected unless the status is connected. A failed
// transmit drops the connection and returns the *transfer.TransmitError; a send aborted
// through ctx returns the context error and leaves the connection up.
func (m *Manager) Send(ctx context.Context, payload string) error {
	if st := m.CurrentStatus(); st != StatusConnected {
		return device.Newf(device.NotConnected, "connection status is %s", st)
	}

	m.seq.Lock()
	defer m.seq.Unlock()

	m.mu.Lock()
	open := m.open
	m.mu.Unlock()
	if !open {
		return device.Newf(device.NotConnected, "connection status is %s", m.CurrentStatus())
	}

	m.logger.WithField("bytes", len(payload)).Debug("Sending payload")
	err := m.transmitter.Transmit(ctx, m.session, payload)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		m.logger.WithField("error", err).Debug("Send aborted by caller")
		return err
	}

	m.mu.Lock()
	addr := m.dropLocked()
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"address": addr,
		"error":   err,
	}).Error("Send failed, dropping connection")
	m.emit(Event{Status: StatusError, Message: fmt.Sprintf("send failed: %v", err), Address: addr})

	if cerr := m.session.Close(); cerr != nil {
		m.logger.WithField("error", cerr).Debug("Closing stale session returned an error")
	}
	return err
}

// CurrentStatus returns the current status without blocking
func (m *Manager) CurrentStatus() Status {
	return m.status.Load().(Status)
}

// Subscribe registers observer for every event published from now on
func (m *Manager) Subscribe(observer eventbus.Observer[Event]) (unsubscribe func()) {
	return m.bus.Subscribe(observer)
}

// RefCount returns the number of registered owners
func (m *Manager) RefCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Peer returns the connected board, nil when not connected
func (m *Manager) Peer() device.Advertisement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peer
}

func (m *Manager) emit(ev Event) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	ev.Time = time.Now()
	m.status.Store(ev.Status)
	m.logger.WithFields(logrus.Fields{
		"status":  ev.Status,
		"message": ev.Message,
	}).Debug("Status changed")
	m.bus.Publish(ev)
}
