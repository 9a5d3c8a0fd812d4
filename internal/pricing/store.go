package pricing

import "sync"

type priceState struct {
	last float64
	base float64
}

// StateStore holds, per symbol, the last emitted price and the fixed
// reference price used for percent change. The reference is the first price
// ever observed for the symbol in this process and never changes. Entries
// are never removed.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string]*priceState
}

func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]*priceState)}
}

// Observe records price for symbol and returns it together with the percent
// change relative to the symbol's reference price. Prices are floored at 1.0
// regardless of source.
func (s *StateStore) Observe(symbol string, price float64) (last float64, changePct float64) {
	if price < 1.0 {
		price = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entries[symbol]
	if !ok {
		st = &priceState{base: price}
		s.entries[symbol] = st
	}
	st.last = price
	return price, (price - st.base) / st.base * 100.0
}

// Reference returns the reference price for symbol, if one has been observed.
func (s *StateStore) Reference(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[symbol]
	if !ok {
		return 0, false
	}
	return st.base, true
}

// LastPrice returns the most recently observed price for symbol.
func (s *StateStore) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[symbol]
	if !ok {
		return 0, false
	}
	return st.last, true
}
