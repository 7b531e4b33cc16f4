package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/srg/moonlink/internal/link"
	"github.com/stretchr/testify/assert"
)

// syncBuffer is a bytes.Buffer safe for the printer goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConnectProgressCountsDownAndStopsOnConnected(t *testing.T) {
	out := &syncBuffer{}
	p := newConnectProgress(out, "Connecting to board", 5*time.Second)
	p.Start()

	p.Observe(link.Event{Status: link.StatusScanning})
	time.Sleep(2 * progressUpdateInterval)
	p.Observe(link.Event{Status: link.StatusConnecting})
	time.Sleep(2 * progressUpdateInterval)
	p.Observe(link.Event{Status: link.StatusConnected})

	got := out.String()
	assert.Contains(t, got, "Connecting to board (Scanning")
	assert.Contains(t, got, "(Scanning 5s)")
	assert.Contains(t, got, "(Connecting ")
	assert.True(t, strings.HasSuffix(got, clearLineSequence))

	before := out.String()
	time.Sleep(2 * progressUpdateInterval)
	assert.Equal(t, before, out.String(), "no redraw after the attempt settled")

	p.Stop()
	assert.Equal(t, before, out.String(), "second Stop is a no-op")
}

func TestConnectProgressStopsOnError(t *testing.T) {
	out := &syncBuffer{}
	p := newConnectProgress(out, "Connecting to board", time.Second)
	p.Start()

	p.Observe(link.Event{Status: link.StatusError, Message: "scan failed"})

	assert.True(t, strings.HasSuffix(out.String(), clearLineSequence))
}

func TestConnectProgressStopWithoutStart(t *testing.T) {
	out := &syncBuffer{}
	p := newConnectProgress(out, "Connecting to board", time.Second)

	p.Stop()

	assert.Equal(t, clearLineSequence, out.String())
}

func TestConnectProgressExhaustedBudget(t *testing.T) {
	out := &syncBuffer{}
	p := newConnectProgress(out, "Connecting to board", time.Millisecond)
	p.Start()
	time.Sleep(2 * progressUpdateInterval)
	p.Stop()

	assert.Contains(t, out.String(), "(Scanning...)")
	assert.NotContains(t, out.String(), "0s)")
}

func TestStatusPhase(t *testing.T) {
	assert.Equal(t, "Scanning", statusPhase(link.StatusScanning))
	assert.Equal(t, "Connecting", statusPhase(link.StatusConnecting))
	assert.Equal(t, "Connected", statusPhase(link.StatusConnected))
	assert.Equal(t, "Failed", statusPhase(link.StatusError))
	assert.Equal(t, "Disconnected", statusPhase(link.StatusDisconnected))
	assert.Equal(t, "Idle", statusPhase(link.StatusIdle))
}
