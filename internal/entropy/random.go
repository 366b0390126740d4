// Package entropy supplies randomness for every probabilistic branch in the
// pack simulation. All consumers draw through the Source interface so tests
// can substitute a scripted sequence; the default client seeds from
// crypto/rand, the seeded client replays deterministically.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// Source yields uniform random values. Every probabilistic decision in the
// engine draws from an injected Source, never from a package-level generator.
type Source interface {
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
	// Intn returns a uniform int in [0, n). n must be > 0.
	Intn(n int) int
}

// Client is the standard Source, a math/rand generator behind a mutex so a
// single client can be shared across the simulation loop and the API reader.
type Client struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeeded returns a deterministic client: same seed, same draw sequence.
func NewSeeded(seed int64) *Client {
	return &Client{rng: mathrand.New(mathrand.NewSource(seed))}
}

// New returns a client seeded from crypto/rand.
func New() *Client {
	return NewSeeded(cryptoSeed())
}

// Float64 returns a uniform float64 in [0, 1).
func (c *Client) Float64() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

// Intn returns a uniform int in [0, n).
func (c *Client) Intn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(n)
}

// cryptoSeed derives a generator seed from crypto/rand. On the unlikely
// failure of the system source it returns a fixed seed rather than erroring;
// a predictable pack beats a dead one.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
