//go:build !windows

package ptybridge_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/srg/moonlink/internal/ptybridge"
	"github.com/srg/moonlink/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	payloads []string
	failOn   string
}

func (s *recordingSender) Send(_ context.Context, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payload == s.failOn {
		return errors.New("not connected")
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

func newBridge(t *testing.T, sender ptybridge.Sender, opts ...ptybridge.Option) *ptybridge.Bridge {
	t.Helper()
	helper := testutils.NewTestHelper(t)
	b, err := ptybridge.New(sender, helper.Logger, append([]ptybridge.Option{ptybridge.WithPollTimeout(5 * time.Millisecond)}, opts...)...)
	if err != nil {
		t.Skipf("PTY not available: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func runBridge(t *testing.T, b *ptybridge.Bridge) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("bridge did not stop")
			return nil
		}
	}
}

func TestBridgeForwardsEachLine(t *testing.T) {
	sender := &recordingSender{}
	b := newBridge(t, sender)
	assert.NotEmpty(t, b.TTYName())
	stop := runBridge(t, b)

	_, err := b.Slave().Write([]byte("l#S12,P40#\nl#E197"))
	require.NoError(t, err)
	_, err = b.Slave().Write([]byte("#\r\n\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(sender.sent()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"l#S12,P40#", "l#E197#"}, sender.sent())
	assert.NoError(t, stop())

	stats := b.Stats()
	assert.Equal(t, uint64(2), stats.Lines)
	assert.GreaterOrEqual(t, stats.BytesIn, uint64(len("l#S12,P40#\nl#E197#")))
}

func TestBridgeReportsFailedLinesAndKeepsRunning(t *testing.T) {
	sender := &recordingSender{failOn: "bad"}
	var mu sync.Mutex
	var outcomes []string
	b := newBridge(t, sender, ptybridge.WithLineHandler(func(line string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			outcomes = append(outcomes, line+": "+err.Error())
			return
		}
		outcomes = append(outcomes, line+": ok")
	}))
	stop := runBridge(t, b)

	_, err := b.Slave().Write([]byte("bad\ngood\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(outcomes) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, stop())

	assert.Equal(t, []string{"bad: not connected", "good: ok"}, outcomes)
	assert.Equal(t, uint64(1), b.Stats().FailedLines)
}

func TestBridgeSymlinkLifecycle(t *testing.T) {
	link := filepath.Join(t.TempDir(), "moonboard")
	b := newBridge(t, &recordingSender{}, ptybridge.WithSymlink(link))

	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, b.TTYName(), target)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	_, err = os.Lstat(link)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunAfterCloseFails(t *testing.T) {
	b := newBridge(t, &recordingSender{})
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Run(context.Background()), os.ErrClosed)
}
