package pricing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/quotestream/pkg/metrics"
)

const defaultAlphaBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage polls the Alpha Vantage GLOBAL_QUOTE endpoint with a minimum
// refresh interval per symbol. Inside the interval it serves the last fetched
// price; on any fetch failure it falls back to evolving the last known price
// with the simulated walk, so one upstream outage never stalls a tick.
type AlphaVantage struct {
	apiKey       string
	pollInterval time.Duration
	baseURL      string
	client       *http.Client
	sim          *Simulated
	logger       *zap.Logger

	mu          sync.Mutex
	lastFetchAt map[string]time.Time
	inFlight    map[string]bool
}

// NewAlphaVantage creates the polled external source. The simulated source
// shares its price cache so fallback evolution continues from the last
// fetched price.
func NewAlphaVantage(apiKey string, pollInterval time.Duration, sim *Simulated, logger *zap.Logger) *AlphaVantage {
	return &AlphaVantage{
		apiKey:       apiKey,
		pollInterval: pollInterval,
		baseURL:      defaultAlphaBaseURL,
		client:       &http.Client{Timeout: 5 * time.Second},
		sim:          sim,
		logger:       logger,
		lastFetchAt:  make(map[string]time.Time),
		inFlight:     make(map[string]bool),
	}
}

// SetBaseURL overrides the provider endpoint. Used in tests.
func (a *AlphaVantage) SetBaseURL(u string) {
	a.baseURL = u
}

// PriceFor returns the cached price when the symbol was fetched within the
// poll interval, otherwise attempts one external fetch. The window check and
// the fetch claim happen under one lock, so concurrent callers for the same
// symbol never issue more than one fetch per interval: whoever loses the
// claim is served the cached price.
func (a *AlphaVantage) PriceFor(symbol string, now time.Time) float64 {
	a.mu.Lock()
	lastAt, fetched := a.lastFetchAt[symbol]
	if fetched && now.Sub(lastAt) < a.pollInterval {
		a.mu.Unlock()
		metrics.ExternalFetches.WithLabelValues("rate_limited").Inc()
		return a.sim.LastOrBase(symbol)
	}
	if a.apiKey == "" || a.inFlight[symbol] {
		a.mu.Unlock()
		return a.sim.LastOrBase(symbol)
	}
	a.inFlight[symbol] = true
	a.mu.Unlock()

	px, err := a.fetch(symbol)

	a.mu.Lock()
	delete(a.inFlight, symbol)
	if err == nil {
		a.lastFetchAt[symbol] = now
	}
	a.mu.Unlock()

	if err != nil {
		metrics.ExternalFetches.WithLabelValues("error").Inc()
		a.logger.Warn("external quote fetch failed, evolving last known price",
			zap.String("symbol", symbol),
			zap.Error(err))
		return a.sim.PriceFor(symbol, now)
	}

	metrics.ExternalFetches.WithLabelValues("ok").Inc()
	a.sim.SetLast(symbol, px)
	return px
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

func (a *AlphaVantage) fetch(symbol string) (float64, error) {
	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", a.apiKey)

	resp, err := a.client.Get(a.baseURL + "?" + q.Encode())
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var data globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode provider response: %w", err)
	}
	if data.GlobalQuote.Price == "" {
		return 0, fmt.Errorf("provider response missing price for %s", symbol)
	}

	px, err := strconv.ParseFloat(data.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse provider price %q: %w", data.GlobalQuote.Price, err)
	}
	return px, nil
}
