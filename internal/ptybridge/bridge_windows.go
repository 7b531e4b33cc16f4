//go:build windows

package ptybridge

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
)

// Bridge is unavailable on Windows, which has no pseudo-terminals
type Bridge struct{}

// New always fails with device.ErrUnsupported
func New(Sender, *logrus.Logger, ...Option) (*Bridge, error) {
	return nil, device.Newf(device.Unsupported, "PTY bridge is not available on windows")
}

func (b *Bridge) TTYName() string              { return "" }
func (b *Bridge) Slave() *os.File              { return nil }
func (b *Bridge) Stats() Stats                 { return Stats{} }
func (b *Bridge) Run(ctx context.Context) error { return os.ErrClosed }
func (b *Bridge) Close() error                 { return nil }
