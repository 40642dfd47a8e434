package server

import (
	"math"

	"github.com/coder/quartz"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/randutil"
)

// Option configures the server, gateway and registry
type Option func(*options)

type options struct {
	clock       quartz.Clock
	seed        int64
	newShuffler func() deck.Shuffler
}

// WithClock sets the clock used by room timers and name cooldowns
func WithClock(clock quartz.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithSeed makes room ids and shuffles reproducible. Zero or below uses
// crypto-seeded randomness.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithShuffler sets a factory for each new room's shuffler
func WithShuffler(newShuffler func() deck.Shuffler) Option {
	return func(o *options) { o.newShuffler = newShuffler }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = quartz.NewReal()
	}
	if o.newShuffler == nil {
		rng := randutil.NewLocked(randutil.New(o.seed))
		o.newShuffler = func() deck.Shuffler {
			return deck.NewRandomShuffler(randutil.New(int64(rng.Intn(math.MaxInt32)) + 1))
		}
	}
	return o
}
