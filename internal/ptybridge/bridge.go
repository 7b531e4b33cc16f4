//go:build !windows

// Package ptybridge exposes the board as a pseudo-terminal. Every line written to the
// terminal's slave side is sent to the board as one payload, so serial tools and scripts
// can drive the LEDs without linking against moonlink.
//
// # Basic Usage
//
//	b, err := ptybridge.New(manager, logger, ptybridge.WithSymlink("/tmp/moonboard"))
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//	fmt.Println(b.TTYName()) // "/dev/pts/X"
//	err = b.Run(ctx)         // blocks until ctx is done
package ptybridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"github.com/srg/moonlink/internal/groutine"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Bridge is a PTY whose input lines are forwarded to a Sender
type Bridge struct {
	sender  Sender
	logger  *logrus.Logger
	opts    options
	master  *os.File
	slave   *os.File
	ttyName string

	readBuf    *ringbuffer.RingBuffer // bytes read from the master, not yet split into lines
	readNotify chan struct{}

	stats struct {
		bytesIn      atomic.Uint64
		droppedBytes atomic.Uint64
		lines        atomic.Uint64
		failedLines  atomic.Uint64
		discarded    atomic.Uint64
	}

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// New creates the PTY pair, puts the slave in raw mode and optionally links it
func New(sender Sender, logger *logrus.Logger, opts ...Option) (*Bridge, error) {
	if logger == nil {
		logger = logrus.New()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	master, slave, err := createPTY()
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		sender:     sender,
		logger:     logger,
		opts:       o,
		master:     master,
		slave:      slave,
		ttyName:    slave.Name(),
		readBuf:    ringbuffer.New(o.readCap),
		readNotify: make(chan struct{}, 1),
	}

	if o.symlink != "" {
		_ = os.Remove(o.symlink)
		if err := os.Symlink(b.ttyName, o.symlink); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to create symlink %s -> %s: %w", o.symlink, b.ttyName, err)
		}
	}

	logger.WithField("tty", b.ttyName).Info("PTY bridge created")
	return b, nil
}

// TTYName returns the slave device path, e.g. "/dev/pts/5"
func (b *Bridge) TTYName() string {
	return b.ttyName
}

// Slave returns the slave side of the terminal
func (b *Bridge) Slave() *os.File {
	return b.slave
}

// Stats returns instantaneous counters
func (b *Bridge) Stats() Stats {
	return Stats{
		BytesIn:        b.stats.bytesIn.Load(),
		DroppedBytes:   b.stats.droppedBytes.Load(),
		Lines:          b.stats.lines.Load(),
		FailedLines:    b.stats.failedLines.Load(),
		DiscardedLines: b.stats.discarded.Load(),
		Buffered:       b.readBuf.Length(),
	}
}

// Run pumps the terminal until ctx is done or the master fails, then closes the bridge.
// Payload send failures are logged and reported through WithLineHandler; they do not
// stop the bridge.
func (b *Bridge) Run(ctx context.Context) error {
	if b.closed.Load() {
		return os.ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(2)

	groutine.Go(ctx, "pty-read-loop", func(ctx context.Context) {
		defer wg.Done()
		if err := b.readLoop(ctx); err != nil {
			readErr <- err
			cancel()
		}
	})

	groutine.Go(ctx, "pty-line-dispatcher", func(ctx context.Context) {
		defer wg.Done()
		b.dispatch(ctx)
	})

	<-ctx.Done()
	closeErr := b.Close()
	wg.Wait()

	select {
	case err := <-readErr:
		return err
	default:
		return closeErr
	}
}

func (b *Bridge) readLoop(ctx context.Context) error {
	master := b.master
	pollFd := []unix.PollFd{{Fd: int32(master.Fd()), Events: unix.POLLIN}}
	buf := make([]byte, 4096)
	timeoutMs := int(b.opts.pollTimeout.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		nReady, err := unix.Poll(pollFd, timeoutMs)
		if err != nil && !errors.Is(err, syscall.EINTR) {
			b.logger.Warnf("readLoop poll error: %v", err)
			continue
		}
		if nReady == 0 {
			continue
		}

		n, err := master.Read(buf)
		if n > 0 {
			b.stats.bytesIn.Add(uint64(n))
			written, writeErr := b.readBuf.Write(buf[:n])
			if writeErr != nil && !errors.Is(writeErr, ringbuffer.ErrIsFull) {
				b.logger.Warnf("readLoop buffer write error: %v", writeErr)
			}
			if written < n {
				b.stats.droppedBytes.Add(uint64(n - written))
				b.logger.Warnf("Read buffer overflow: dropped %d bytes from PTY", n-written)
			}
			if written > 0 {
				select {
				case b.readNotify <- struct{}{}:
				default:
				}
			}
		}

		if err != nil {
			switch {
			case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
				continue
			case errors.Is(err, syscall.EBADF), errors.Is(err, os.ErrClosed), errors.Is(err, io.EOF):
				b.logger.Debugf("readLoop exiting: %v", err)
				return nil
			default:
				b.logger.Warnf("readLoop exiting on error: %v", err)
				return fmt.Errorf("pty read failed: %w", err)
			}
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context) {
	splitter := newLineSplitter(b.opts.maxLine)
	tmp := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.readNotify:
		}

		for {
			n, err := b.readBuf.TryRead(tmp)
			if n == 0 || errors.Is(err, ringbuffer.ErrIsEmpty) {
				break
			}

			lines, discarded := splitter.feed(tmp[:n])
			if discarded > 0 {
				b.stats.discarded.Add(uint64(discarded))
				b.logger.WithField("limit", b.opts.maxLine).Warnf("Discarded %d overlong line(s)", discarded)
			}
			for _, line := range lines {
				if ctx.Err() != nil {
					return
				}
				b.sendLine(ctx, line)
			}
		}
	}
}

func (b *Bridge) sendLine(ctx context.Context, line string) {
	err := b.sender.Send(ctx, line)
	if err != nil {
		b.stats.failedLines.Add(1)
		b.logger.WithFields(logrus.Fields{
			"line":  line,
			"error": err,
		}).Warn("Failed to send line")
	} else {
		b.stats.lines.Add(1)
		b.logger.WithField("bytes", len(line)).Debug("Line sent")
	}
	if b.opts.onLine != nil {
		b.opts.onLine(line, err)
	}
}

// Close releases the terminal and removes the symlink. It is safe to call repeatedly.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)

		var errs []error
		if err := b.master.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close PTY(ptyx): %w", err))
		}
		if err := b.slave.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close PTY(tty): %w", err))
		}
		if b.opts.symlink != "" {
			if err := os.Remove(b.opts.symlink); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove symlink: %w", err))
			}
		}
		b.closeErr = errors.Join(errs...)
		b.logger.WithField("tty", b.ttyName).Info("PTY bridge closed")
	})
	return b.closeErr
}

// createPTY creates a pseudo-terminal with a raw slave and a non-blocking master
func createPTY() (master *os.File, slave *os.File, err error) {
	master, slave, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create PTY (check permissions and available PTY devices): %w", err)
	}

	cleanup := func(stage string, cause error) error {
		errs := []error{cause}
		if closeErr := master.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("close PTY(ptyx): %w", closeErr))
		}
		if closeErr := slave.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("close PTY(tty): %w", closeErr))
		}
		return fmt.Errorf("failed to set %s: %w", stage, errors.Join(errs...))
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		return nil, nil, cleanup(fmt.Sprintf("PTY(tty) %s to raw mode", slave.Name()), err)
	}
	if err := syscall.SetNonblock(int(master.Fd()), true); err != nil {
		return nil, nil, cleanup(fmt.Sprintf("PTY(ptyx) %s to nonblocking mode", slave.Name()), err)
	}
	return master, slave, nil
}
