// Package random provides Random implementations.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/artpar/botgate/ports"
)

// Real uses crypto/rand for randomness. The rate limit jitter does not
// need cryptographic quality, but using one source everywhere keeps the
// adapter small.
type Real struct{}

// Bytes generates n random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Between draws a uniform integer in [min, max] inclusive.
func (Real) Between(min, max int) (int, error) {
	if min > max {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return min + int(n.Int64()), nil
}

// Fake provides deterministic randomness for testing.
type Fake struct {
	mu      sync.Mutex
	counter int
	draws   []int // preset Between results, consumed in order
	drawIdx int
}

// NewFake creates a fake random source.
func NewFake() *Fake {
	return &Fake{}
}

// WithDraws sets preset Between results.
func (f *Fake) WithDraws(draws ...int) *Fake {
	f.draws = draws
	f.drawIdx = 0
	return f
}

// Bytes returns deterministic bytes based on an internal counter.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((f.counter + i) % 256)
	}
	return b, nil
}

// Between returns the next preset draw clamped to [min, max], or min
// when no draws are preset.
func (f *Fake) Between(min, max int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if min > max {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	if f.drawIdx < len(f.draws) {
		v := f.draws[f.drawIdx]
		f.drawIdx++
		if v < min {
			v = min
		}
		if v > max {
			v = max
		}
		return v, nil
	}
	return min, nil
}

// Ensure interface compliance.
var (
	_ ports.Random = Real{}
	_ ports.Random = (*Fake)(nil)
)
