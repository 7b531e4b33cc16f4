// Package transfer splits outbound payloads into bounded chunks and writes them one at a
// time with a configurable pause in between. Writes to the board are not acknowledged,
// so strict sequencing plus pacing is the only protection against dropped packets.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
)

// ChunkWriter writes a single chunk to the peer
type ChunkWriter interface {
	WriteChunk(p []byte) error
}

// TransmitError reports the first chunk that could not be delivered. Chunks before it
// were written and are not rolled back.
type TransmitError struct {
	Chunk  int // 1-based index of the failed chunk
	Offset int // byte offset of the failed chunk in the payload
	Err    error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit failed at chunk %d (offset %d): %v", e.Chunk, e.Offset, e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, device.ErrTransmit) match
func (e *TransmitError) Is(target error) bool {
	return target == device.ErrTransmit
}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Transmitter writes payloads as paced chunk sequences
type Transmitter struct {
	cfg    *Config
	logger *logrus.Logger
	sleep  Sleeper
}

// Option configures a Transmitter
type Option func(*Transmitter)

// WithSleeper replaces the pause implementation, mainly for tests
func WithSleeper(fn Sleeper) Option {
	return func(t *Transmitter) { t.sleep = fn }
}

// NewTransmitter creates a Transmitter reading its parameters from cfg
func NewTransmitter(cfg *Config, logger *logrus.Logger, opts ...Option) *Transmitter {
	if cfg == nil {
		cfg = NewConfig(DefaultSettings())
	}
	if logger == nil {
		logger = logrus.New()
	}
	t := &Transmitter{cfg: cfg, logger: logger, sleep: sleepContext}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the live configuration
func (t *Transmitter) Config() *Config {
	return t.cfg
}

// Transmit writes text to w in chunks of at most ChunkSize bytes, strictly in order,
// pausing InterChunkDelay between consecutive chunks. The first failure aborts the rest.
// Callers must not run two Transmit calls against the same writer concurrently.
func (t *Transmitter) Transmit(ctx context.Context, w ChunkWriter, text string) error {
	data := []byte(text)
	chunk := 0

	for off := 0; off < len(data); {
		if err := ctx.Err(); err != nil {
			return &TransmitError{Chunk: chunk + 1, Offset: off, Err: err}
		}

		end := min(off+t.cfg.ChunkSize(), len(data))
		chunk++
		if err := w.WriteChunk(data[off:end]); err != nil {
			t.logger.WithFields(logrus.Fields{
				"chunk":  chunk,
				"offset": off,
				"error":  err,
			}).Warn("Chunk write failed, aborting transmit")
			return &TransmitError{Chunk: chunk, Offset: off, Err: err}
		}

		t.logger.WithFields(logrus.Fields{
			"chunk": chunk,
			"bytes": end - off,
		}).Debug("Wrote chunk to device")

		off = end
		if off < len(data) {
			if err := t.sleep(ctx, t.cfg.InterChunkDelay()); err != nil {
				return &TransmitError{Chunk: chunk + 1, Offset: off, Err: err}
			}
		}
	}

	t.logger.WithFields(logrus.Fields{
		"bytes":  len(data),
		"chunks": chunk,
	}).Debug("Payload transmitted")
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
