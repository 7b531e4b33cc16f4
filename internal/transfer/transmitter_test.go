package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
	"github.com/srg/moonlink/internal/testutils"
	"github.com/srg/moonlink/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// recorder captures writes and pauses in a single ordered transcript
type recorder struct {
	mu        sync.Mutex
	events    []string
	writes    []string
	failAt    int // 1-based chunk index to fail, 0 = never
	failErr   error
	onWrite   func(n int)
	sleepErrs map[int]error // pause index -> error
	pauses    int
}

func (r *recorder) WriteChunk(p []byte) error {
	r.mu.Lock()
	n := len(r.writes) + 1
	cb := r.onWrite
	if r.failAt == n {
		r.events = append(r.events, fmt.Sprintf("fail %q", p))
		r.mu.Unlock()
		return r.failErr
	}
	r.writes = append(r.writes, string(p))
	r.events = append(r.events, fmt.Sprintf("write %q", p))
	r.mu.Unlock()

	if cb != nil {
		cb(n)
	}
	return nil
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses++
	r.events = append(r.events, fmt.Sprintf("pause %s", d))
	return r.sleepErrs[r.pauses]
}

type TransmitterTestSuite struct {
	suite.Suite
	logger *logrus.Logger
	cfg    *transfer.Config
	rec    *recorder
	tx     *transfer.Transmitter
}

func (s *TransmitterTestSuite) SetupTest() {
	s.logger = testutils.NewTestHelper(s.T()).Logger
	s.cfg = transfer.NewConfig(transfer.DefaultSettings())
	s.rec = &recorder{}
	s.tx = transfer.NewTransmitter(s.cfg, s.logger, transfer.WithSleeper(s.rec.sleep))
}

func (s *TransmitterTestSuite) TestSplitsIntoOrderedChunksWithPauses() {
	s.cfg.SetChunkSize(3)
	s.cfg.SetInterChunkDelay(15 * time.Millisecond)

	s.Require().NoError(s.tx.Transmit(context.Background(), s.rec, "ABCDEFGHIJ"))

	testutils.NewTranscriptAsserter(s.T()).Assert(s.rec.events, []string{
		`write "ABC"`,
		"pause 15ms",
		`write "DEF"`,
		"pause 15ms",
		`write "GHI"`,
		"pause 15ms",
		`write "J"`,
	})
}

func (s *TransmitterTestSuite) TestPayloadShorterThanChunkIsSingleWrite() {
	s.cfg.SetChunkSize(20)

	s.Require().NoError(s.tx.Transmit(context.Background(), s.rec, "l#S12,P40,E197#"))

	s.Equal([]string{"l#S12,P40,E197#"}, s.rec.writes)
	s.Zero(s.rec.pauses, "no pause after the final chunk")
}

func (s *TransmitterTestSuite) TestEmptyPayloadWritesNothing() {
	s.Require().NoError(s.tx.Transmit(context.Background(), s.rec, ""))
	s.Empty(s.rec.events)
}

func (s *TransmitterTestSuite) TestFailureAbortsRemainingChunks() {
	cause := errors.New("write command rejected")
	s.cfg.SetChunkSize(2)
	s.rec.failAt = 3
	s.rec.failErr = cause

	err := s.tx.Transmit(context.Background(), s.rec, "AABBCCDDEE")

	var txErr *transfer.TransmitError
	s.Require().ErrorAs(err, &txErr)
	s.Equal(3, txErr.Chunk)
	s.Equal(4, txErr.Offset)
	s.ErrorIs(err, cause)
	s.ErrorIs(err, device.ErrTransmit)
	s.Equal([]string{"AA", "BB"}, s.rec.writes, "chunks 4 and 5 are never attempted")
	s.Contains(err.Error(), "chunk 3")
}

func (s *TransmitterTestSuite) TestConfigChangeAppliesToNextChunk() {
	s.cfg.SetChunkSize(4)
	s.rec.onWrite = func(n int) {
		if n == 1 {
			s.cfg.SetChunkSize(2)
		}
	}

	s.Require().NoError(s.tx.Transmit(context.Background(), s.rec, "ABCDEFGH"))

	s.Equal([]string{"ABCD", "EF", "GH"}, s.rec.writes)
}

func (s *TransmitterTestSuite) TestCancelledDuringPause() {
	s.cfg.SetChunkSize(1)
	s.rec.sleepErrs = map[int]error{1: context.Canceled}

	err := s.tx.Transmit(context.Background(), s.rec, "ABC")

	var txErr *transfer.TransmitError
	s.Require().ErrorAs(err, &txErr)
	s.Equal(2, txErr.Chunk)
	s.ErrorIs(err, context.Canceled)
	s.Equal([]string{"A"}, s.rec.writes)
}

func (s *TransmitterTestSuite) TestCancelledBeforeStart() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.tx.Transmit(ctx, s.rec, "ABC")

	s.ErrorIs(err, context.Canceled)
	s.Empty(s.rec.writes)
}

func TestTransmitterTestSuite(t *testing.T) {
	suite.Run(t, new(TransmitterTestSuite))
}

func TestRealSleeperPacesChunks(t *testing.T) {
	cfg := transfer.NewConfig(transfer.Settings{ChunkSize: 1, InterChunkDelay: 20 * time.Millisecond})
	rec := &recorder{}
	tx := transfer.NewTransmitter(cfg, nil)

	start := time.Now()
	require.NoError(t, tx.Transmit(context.Background(), rec, "ABC"))

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "two pauses between three chunks")
	assert.Equal(t, []string{"A", "B", "C"}, rec.writes)
}

func TestRealSleeperHonoursContext(t *testing.T) {
	cfg := transfer.NewConfig(transfer.Settings{ChunkSize: 1, InterChunkDelay: time.Hour})
	tx := transfer.NewTransmitter(cfg, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tx.Transmit(ctx, &recorder{}, "AB")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
