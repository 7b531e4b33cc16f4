package ptybridge

import (
	"context"
	"time"
)

// Sender delivers one payload to the board
type Sender interface {
	Send(ctx context.Context, payload string) error
}

// LineHandler observes every forwarded line and its send outcome
type LineHandler func(line string, err error)

// Stats provides runtime counters
type Stats struct {
	BytesIn        uint64
	DroppedBytes   uint64
	Lines          uint64
	FailedLines    uint64
	DiscardedLines uint64
	Buffered       int
}

const (
	DefaultReadCap     = 4096
	DefaultMaxLine     = 1024
	DefaultPollTimeout = 50 * time.Millisecond
)

type options struct {
	readCap     int
	maxLine     int
	pollTimeout time.Duration
	symlink     string
	onLine      LineHandler
}

func defaultOptions() options {
	return options{
		readCap:     DefaultReadCap,
		maxLine:     DefaultMaxLine,
		pollTimeout: DefaultPollTimeout,
	}
}

// Option configures a Bridge
type Option func(*options)

// WithReadBuffer sets the capacity of the input ring buffer
func WithReadBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readCap = n
		}
	}
}

// WithMaxLine sets the longest line forwarded; longer ones are discarded
func WithMaxLine(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLine = n
		}
	}
}

// WithPollTimeout bounds how long the read loop waits before rechecking for shutdown
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollTimeout = d
		}
	}
}

// WithSymlink links path to the slave device for the bridge's lifetime
func WithSymlink(path string) Option {
	return func(o *options) { o.symlink = path }
}

// WithLineHandler reports every forwarded line
func WithLineHandler(fn LineHandler) Option {
	return func(o *options) { o.onLine = fn }
}
