// Package session owns the physical link to the board: it dials the peer, resolves the
// Nordic UART service and its RX characteristic, and exposes a single unacknowledged
// write primitive.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
)

const (
	// SerialServiceUUID is the standard Nordic UART Service UUID for BLE serial communication
	SerialServiceUUID = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"

	// SerialRxCharUUID is the RX characteristic (client -> device)
	SerialRxCharUUID = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
)

// Session is the transport to a single peer. It is safe for concurrent use, although
// writes are expected to be serialized by the caller.
type Session struct {
	dialer      device.Dialer
	serviceUUID string
	rxCharUUID  string
	logger      *logrus.Logger

	mu     sync.Mutex
	peer   device.Advertisement
	client device.Client
	rx     device.Characteristic
}

// Option configures a Session
type Option func(*Session)

// WithServiceUUID overrides the data service UUID
func WithServiceUUID(uuid string) Option {
	return func(s *Session) { s.serviceUUID = uuid }
}

// WithCharacteristicUUID overrides the writable characteristic UUID
func WithCharacteristicUUID(uuid string) Option {
	return func(s *Session) { s.rxCharUUID = uuid }
}

// New creates a closed Session that dials through dialer
func New(dialer device.Dialer, logger *logrus.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Session{
		dialer:      dialer,
		serviceUUID: SerialServiceUUID,
		rxCharUUID:  SerialRxCharUUID,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to peer unless the session is already open to it, then resolves the
// data service and characteristic. A peer without them is rejected with a
// *device.NotFoundError and the link is cancelled.
func (s *Session) Open(ctx context.Context, peer device.Advertisement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if s.peer != nil && s.peer.Addr() == peer.Addr() {
			s.logger.WithField("address", peer.Addr()).Debug("Session already open")
			return nil
		}
		s.logger.WithField("address", s.peer.Addr()).Warn("Session open to another peer, closing it first")
		s.closeLocked()
	}

	s.logger.WithFields(logrus.Fields{
		"address": peer.Addr(),
		"name":    peer.LocalName(),
	}).Info("Connecting to BLE device...")

	client, err := s.dialer.Dial(ctx, peer)
	if err != nil {
		return fmt.Errorf("failed to connect to device with address %q: %w", peer.Addr(), classify(err))
	}

	rx, err := s.resolve(ctx, client)
	if err != nil {
		if cancelErr := client.Disconnect(); cancelErr != nil {
			s.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during service resolution failure")
		}
		return err
	}

	s.peer = peer
	s.client = client
	s.rx = rx

	s.logger.WithFields(logrus.Fields{
		"address":        peer.Addr(),
		"service":        s.serviceUUID,
		"characteristic": s.rxCharUUID,
	}).Info("BLE serial session established")
	return nil
}

func (s *Session) resolve(ctx context.Context, client device.Client) (device.Characteristic, error) {
	services, err := client.DiscoverServices(ctx, []string{s.serviceUUID})
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", classify(err))
	}

	var svc device.Service
	for _, candidate := range services {
		if device.EqualUUID(candidate.UUID(), s.serviceUUID) {
			svc = candidate
			break
		}
	}
	if svc == nil {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{s.serviceUUID}}
	}

	for _, char := range svc.Characteristics() {
		if !device.EqualUUID(char.UUID(), s.rxCharUUID) {
			continue
		}
		if !char.CanWriteWithoutResponse() {
			return nil, &device.NotFoundError{
				Resource: "characteristic",
				UUIDs:    []string{s.serviceUUID, s.rxCharUUID},
				Reason:   "not writable without response",
			}
		}
		return char, nil
	}
	return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{s.serviceUUID, s.rxCharUUID}}
}

// Close disconnects the open peer. Calling it on a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.client == nil {
		s.logger.Debug("Close called but session is not open")
		return nil
	}

	client, addr := s.client, s.peer.Addr()
	s.client, s.rx, s.peer = nil, nil, nil

	if err := client.Disconnect(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"address": addr,
			"error":   err,
		}).Warn("BLE device disconnected with errors")
		return err
	}
	s.logger.WithField("address", addr).Info("BLE device disconnected successfully")
	return nil
}

// WriteChunk writes p as one base64 frame without waiting for an acknowledgment
func (s *Session) WriteChunk(p []byte) error {
	s.mu.Lock()
	rx := s.rx
	s.mu.Unlock()

	if rx == nil {
		return device.ErrNotConnected
	}
	return rx.WriteFrame(base64.StdEncoding.EncodeToString(p))
}

// Disconnected is closed when the peer drops the link; nil when closed or unsupported
func (s *Session) Disconnected() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	return s.client.Disconnected()
}

// IsOpen reports whether a peer is connected
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Peer returns the connected peer, nil when closed
func (s *Session) Peer() device.Advertisement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// classify files unclassified link failures under device.Radio
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if device.KindOf(err) != "" {
		return err
	}
	return device.Wrap(device.Radio, err)
}
