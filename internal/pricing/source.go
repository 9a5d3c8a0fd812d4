// Package pricing produces and tracks per-symbol prices for the quote engine.
package pricing

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

// Source produces the current price for a symbol. Implementations mutate
// shared per-symbol state and must be safe for concurrent use from the tick
// loop and snapshot queries.
type Source interface {
	PriceFor(symbol string, now time.Time) float64
}

// deterministicSeed makes seeded walks reproducible across runs.
const deterministicSeed = 123456789

// driftRange bounds each multiplicative step of the walk to roughly ±1.2%.
const driftRange = 0.024

// Simulated evolves prices with a bounded random walk. The first call for a
// symbol seeds a base price; each subsequent call perturbs the previous one,
// floored at 1.0.
type Simulated struct {
	mu            sync.Mutex
	last          map[string]float64
	rng           *rand.Rand
	deterministic bool
}

// NewSimulated creates a simulated source. In deterministic mode base prices
// derive from a hash of the symbol and the walk is seeded, so identical call
// sequences produce identical price sequences.
func NewSimulated(deterministic bool) *Simulated {
	var rng *rand.Rand
	if deterministic {
		rng = rand.New(rand.NewSource(deterministicSeed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulated{
		last:          make(map[string]float64),
		rng:           rng,
		deterministic: deterministic,
	}
}

// PriceFor advances the walk for symbol one step and returns the new price.
func (s *Simulated) PriceFor(symbol string, _ time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evolveLocked(symbol)
}

func (s *Simulated) evolveLocked(symbol string) float64 {
	lastPx, ok := s.last[symbol]
	if !ok {
		lastPx = s.basePriceLocked(symbol)
	}
	drift := (s.rng.Float64() - 0.5) * driftRange
	next := lastPx * (1.0 + drift)
	if next < 1.0 {
		next = 1.0
	}
	s.last[symbol] = next
	return next
}

func (s *Simulated) basePriceLocked(symbol string) float64 {
	if !s.deterministic {
		return 80.0 + s.rng.Float64()*140.0
	}
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 50.0 + float64(h.Sum32()%200)
}

// Last returns the cached price for symbol, if any.
func (s *Simulated) Last(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	px, ok := s.last[symbol]
	return px, ok
}

// SetLast overwrites the cached price for symbol. Used by the external source
// to keep its fetched prices and the fallback walk on one trajectory.
func (s *Simulated) SetLast(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[symbol] = price
}

// LastOrBase returns the cached price for symbol, seeding the base price if
// the symbol has never been priced. It does not advance the walk.
func (s *Simulated) LastOrBase(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	px, ok := s.last[symbol]
	if !ok {
		px = s.basePriceLocked(symbol)
		s.last[symbol] = px
	}
	return px
}
