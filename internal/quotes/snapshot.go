package quotes

import (
	"math"
	"sort"
	"time"

	"github.com/finsight/quotestream/internal/pricing"
)

// Snapshot is one symbol's current state as returned by pull-style queries.
type Snapshot struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changePct"`
	Ts        int64   `json:"ts"`
}

// Mover pairs a symbol with its current percent change.
type Mover struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changePct"`
}

// SnapshotService answers one-shot price queries outside the streaming loop.
// It shares the broadcaster's Source and StateStore, so a symbol's reference
// base is the same whether it was first observed here or on a tick.
type SnapshotService struct {
	source   pricing.Source
	store    *pricing.StateStore
	defaults []string
}

func NewSnapshotService(source pricing.Source, store *pricing.StateStore, defaultSymbols []string) *SnapshotService {
	return &SnapshotService{
		source:   source,
		store:    store,
		defaults: defaultSymbols,
	}
}

// Initial returns the current price and percent change for each requested
// symbol. An empty list means the default symbol set.
func (s *SnapshotService) Initial(symbols []string) map[string]Snapshot {
	if len(symbols) == 0 {
		symbols = s.defaults
	}
	now := time.Now()
	ts := now.UnixMilli()

	out := make(map[string]Snapshot, len(symbols))
	for _, symbol := range symbols {
		price := s.source.PriceFor(symbol, now)
		last, changePct := s.store.Observe(symbol, price)
		out[symbol] = Snapshot{
			Price:     round2(last),
			ChangePct: round2(changePct),
			Ts:        ts,
		}
	}
	return out
}

// Movers returns the n best and n worst percent-change entries over the
// default symbol universe.
func (s *SnapshotService) Movers(n int) (gainers, losers []Mover) {
	snaps := s.Initial(nil)

	all := make([]Mover, 0, len(snaps))
	for symbol, snap := range snaps {
		all = append(all, Mover{Symbol: symbol, Price: snap.Price, ChangePct: snap.ChangePct})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ChangePct != all[j].ChangePct {
			return all[i].ChangePct > all[j].ChangePct
		}
		return all[i].Symbol < all[j].Symbol
	})

	if n > len(all) {
		n = len(all)
	}
	gainers = all[:n]
	losers = make([]Mover, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		losers = append(losers, all[i])
	}
	return gainers, losers
}

// Symbols returns the known symbol universe.
func (s *SnapshotService) Symbols() []string {
	out := make([]string, len(s.defaults))
	copy(out, s.defaults)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
