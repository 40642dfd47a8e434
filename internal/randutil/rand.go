package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
	"sync"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Seeds of zero or below ask for a non-deterministic source instead.
func New(seed int64) *rand.Rand {
	if seed <= 0 {
		return Seeded()
	}
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seeded returns a *rand.Rand seeded from crypto/rand.
func Seeded() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("randutil: failed to read random seed: " + err.Error())
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// Locked wraps a *rand.Rand for use from several goroutines.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked returns a goroutine-safe wrapper around rng
func NewLocked(rng *rand.Rand) *Locked {
	return &Locked{rng: rng}
}

// Intn returns a value in [0, n)
func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
