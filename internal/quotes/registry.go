package quotes

import (
	"sync"

	"go.uber.org/zap"

	"github.com/finsight/quotestream/pkg/metrics"
)

// Registry maps each live session to its subscribed symbol set. All methods
// are safe for concurrent use; a replace is atomic, so readers observe either
// the old set or the new one, never a mix.
type Registry struct {
	mu       sync.RWMutex
	subs     map[Session]map[string]struct{}
	defaults []string
	logger   *zap.Logger
}

func NewRegistry(defaultSymbols []string, logger *zap.Logger) *Registry {
	return &Registry{
		subs:     make(map[Session]map[string]struct{}),
		defaults: defaultSymbols,
		logger:   logger,
	}
}

// Register adds the session with the default symbol set.
func (r *Registry) Register(s Session) {
	r.mu.Lock()
	r.subs[s] = symbolSet(r.defaults)
	count := len(r.subs)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	r.logger.Debug("session registered", zap.String("session_id", s.ID()))
}

// SetSubscription atomically replaces the session's symbol set. An empty
// input means "watch the defaults", not "watch nothing". Returns the applied
// symbols.
func (r *Registry) SetSubscription(s Session, symbols []string) []string {
	if len(symbols) == 0 {
		symbols = r.defaults
	}

	r.mu.Lock()
	r.subs[s] = symbolSet(symbols)
	r.mu.Unlock()

	r.logger.Info("subscription replaced",
		zap.String("session_id", s.ID()),
		zap.Strings("symbols", symbols))
	return symbols
}

// Unregister removes the session. Idempotent.
func (r *Registry) Unregister(s Session) {
	r.mu.Lock()
	_, present := r.subs[s]
	delete(r.subs, s)
	count := len(r.subs)
	r.mu.Unlock()

	if present {
		metrics.ActiveSessions.Set(float64(count))
		r.logger.Debug("session unregistered", zap.String("session_id", s.ID()))
	}
}

// AllSubscribedSymbols returns the union of every live session's symbol set,
// computed fresh on each call.
func (r *Registry) AllSubscribedSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	union := make(map[string]struct{})
	for _, set := range r.subs {
		for sym := range set {
			union[sym] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for sym := range union {
		out = append(out, sym)
	}
	return out
}

// SessionsFor returns the sessions whose current set contains symbol.
func (r *Registry) SessionsFor(symbol string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Session
	for s, set := range r.subs {
		if _, ok := set[symbol]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func symbolSet(symbols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return set
}
