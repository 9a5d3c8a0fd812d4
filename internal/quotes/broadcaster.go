package quotes

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/quotestream/internal/pricing"
	"github.com/finsight/quotestream/pkg/metrics"
)

// Broadcaster drives the fan-out cycle. A single ticker fires once per
// interval; each firing prices every currently-subscribed symbol exactly once
// and sends the resulting quote to every session watching it. Cycles run
// synchronously on the ticker goroutine, so an overrunning cycle causes the
// next firing to be dropped rather than queued.
type Broadcaster struct {
	logger   *zap.Logger
	source   pricing.Source
	store    *pricing.StateStore
	registry *Registry
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewBroadcaster(source pricing.Source, store *pricing.StateStore, registry *Registry, interval time.Duration, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger:   logger,
		source:   source,
		store:    store,
		registry: registry,
		interval: interval,
	}
}

// Start launches the tick loop. The first cycle runs one full interval after
// startup, never earlier.
func (b *Broadcaster) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isRunning {
		return fmt.Errorf("broadcaster is already running")
	}
	b.stopChan = make(chan struct{})
	b.doneChan = make(chan struct{})
	go b.run(b.stopChan, b.doneChan)

	b.isRunning = true
	b.logger.Info("broadcaster started", zap.Duration("interval", b.interval))
	return nil
}

// Stop halts the tick loop and waits for any in-flight cycle to complete.
// Sessions are left registered; closing connections is the acceptance
// layer's job.
func (b *Broadcaster) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isRunning {
		return fmt.Errorf("broadcaster is not running")
	}
	close(b.stopChan)
	<-b.doneChan

	b.isRunning = false
	b.logger.Info("broadcaster stopped")
	return nil
}

func (b *Broadcaster) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.broadcastOnce(time.Now())
			// A firing that landed while the cycle overran the period is
			// dropped, not run back-to-back: at most one cycle in flight.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// broadcastOnce runs one full cycle: price each distinct subscribed symbol
// once, then deliver that same quote to every session watching it. A failed
// send removes the session immediately and never blocks delivery to the rest.
func (b *Broadcaster) broadcastOnce(now time.Time) {
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	for _, symbol := range b.registry.AllSubscribedSymbols() {
		price := b.source.PriceFor(symbol, now)
		last, changePct := b.store.Observe(symbol, price)
		frame := EncodeQuote(symbol, last, changePct, now)

		for _, sess := range b.registry.SessionsFor(symbol) {
			if err := sess.Send(frame); err != nil {
				metrics.SendFailures.Inc()
				b.registry.Unregister(sess)
				b.logger.Warn("send failed, session removed",
					zap.String("session_id", sess.ID()),
					zap.String("symbol", symbol),
					zap.Error(err))
				continue
			}
			metrics.QuotesSent.WithLabelValues("stream").Inc()
		}
	}
}

// Snapshot immediately sends the current quote for each symbol to one
// session, outside the tick cadence. Used right after a subscribe so the
// client does not wait a full period for its first update.
func (b *Broadcaster) Snapshot(sess Session, symbols []string) {
	now := time.Now()
	for _, symbol := range symbols {
		price := b.source.PriceFor(symbol, now)
		last, changePct := b.store.Observe(symbol, price)

		if err := sess.Send(EncodeQuote(symbol, last, changePct, now)); err != nil {
			metrics.SendFailures.Inc()
			b.registry.Unregister(sess)
			b.logger.Warn("snapshot send failed, session removed",
				zap.String("session_id", sess.ID()),
				zap.Error(err))
			return
		}
		metrics.QuotesSent.WithLabelValues("snapshot").Inc()
	}
}

// HandleMessage processes one inbound frame from a session. Subscribe frames
// replace the session's symbol set and trigger an immediate snapshot;
// anything else is ignored.
func (b *Broadcaster) HandleMessage(sess Session, data []byte) {
	symbols, ok := DecodeSubscribe(data)
	if !ok {
		b.logger.Debug("ignoring unrecognized frame", zap.String("session_id", sess.ID()))
		return
	}
	applied := b.registry.SetSubscription(sess, symbols)
	b.Snapshot(sess, applied)
}
