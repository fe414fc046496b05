package gacha

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource abstract
type RandomSource interface {
	Float64() float64 // [0, 1)
}

// crypto random : default generation method
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	// Read 53bit random => [0, 1)
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		return rand.Float64()
	}

	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

func DefaultRNG() RandomSource { return cryptoRNG{} }

// Replicable RNG (tests, Monte Carlo)
type seededRNG struct{ r *rand.Rand }

func NewSeededRNG(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }

type lockedRNG struct {
	mu  sync.Mutex
	src RandomSource
}

// Synchronized makes src safe for concurrent draws. The default source is
// already safe and is returned as is.
func Synchronized(src RandomSource) RandomSource {
	switch src.(type) {
	case nil, cryptoRNG, *lockedRNG:
		return src
	}
	return &lockedRNG{src: src}
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// intBetween returns a uniform int in [lo, hi].
func intBetween(rng RandomSource, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := hi - lo + 1
	n := int(rng.Float64() * float64(span))
	if n >= span {
		n = span - 1
	}
	return lo + n
}
