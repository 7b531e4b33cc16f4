package transfer

import (
	"sync/atomic"
	"time"

	"github.com/mcuadros/go-defaults"
)

// MaxChunkSize is the largest write the board accepts in a single packet
const MaxChunkSize = 20

// Settings is the plain, serializable form of Config
type Settings struct {
	ChunkSize       int           `default:"20" yaml:"chunk_size" json:"chunk_size"`
	InterChunkDelay time.Duration `default:"0s" yaml:"inter_chunk_delay" json:"inter_chunk_delay"`
}

// DefaultSettings returns the settings the board works with out of the box
func DefaultSettings() Settings {
	s := Settings{}
	defaults.SetDefaults(&s)
	return s
}

// Config holds the runtime-tunable transfer parameters. It is safe for concurrent use;
// the transmitter reads it once per chunk, so a change applies from the next chunk on.
type Config struct {
	chunkSize atomic.Int64
	delay     atomic.Int64
}

// NewConfig creates a Config from s, clamping out-of-range values
func NewConfig(s Settings) *Config {
	c := &Config{}
	c.SetChunkSize(s.ChunkSize)
	c.SetInterChunkDelay(s.InterChunkDelay)
	return c
}

// ChunkSize returns the current chunk size in bytes
func (c *Config) ChunkSize() int {
	return int(c.chunkSize.Load())
}

// SetChunkSize stores n clamped to [1, MaxChunkSize] and returns the stored value
func (c *Config) SetChunkSize(n int) int {
	n = min(MaxChunkSize, max(1, n))
	c.chunkSize.Store(int64(n))
	return n
}

// InterChunkDelay returns the pause inserted between two chunks
func (c *Config) InterChunkDelay() time.Duration {
	return time.Duration(c.delay.Load())
}

// SetInterChunkDelay stores d (negative values become 0) and returns the stored value
func (c *Config) SetInterChunkDelay(d time.Duration) time.Duration {
	d = max(0, d)
	c.delay.Store(int64(d))
	return d
}

// Settings returns a snapshot of the current values
func (c *Config) Settings() Settings {
	return Settings{
		ChunkSize:       c.ChunkSize(),
		InterChunkDelay: c.InterChunkDelay(),
	}
}
