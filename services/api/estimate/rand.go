package estimate

import (
	"math/rand/v2"
	"sync"
)

// Rand is the randomness source behind every jittered estimate.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

// Fixed returns a Rand that always yields v.
func Fixed(v float64) Rand { return fixed(v) }

// NoJitter yields the midpoint so every centred jitter term is zero.
var NoJitter Rand = fixed(0.5)

type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// NewSeeded returns a goroutine-safe deterministic source.
func NewSeeded(seed uint64) Rand {
	return &lockedRand{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Global draws from the runtime's shared generator.
var Global Rand = globalRand{}

// centred maps r into [-span/2, +span/2).
func centred(r Rand, span float64) float64 {
	return (r.Float64() - 0.5) * span
}
