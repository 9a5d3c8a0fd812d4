package pricing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, price string, status int) (*httptest.Server, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"Global Quote": {"01. symbol": "%s", "05. price": "%s"}}`,
			r.URL.Query().Get("symbol"), price)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newAlpha(t *testing.T, srv *httptest.Server, pollInterval time.Duration) *AlphaVantage {
	t.Helper()
	a := NewAlphaVantage("test-key", pollInterval, NewSimulated(true), zap.NewNop())
	a.SetBaseURL(srv.URL)
	return a
}

func TestAlphaFetchesAndCaches(t *testing.T) {
	srv, calls := newTestProvider(t, "173.50", http.StatusOK)
	a := newAlpha(t, srv, 15*time.Second)

	t0 := time.Now()
	px := a.PriceFor("AAPL", t0)
	require.Equal(t, 173.50, px)
	require.EqualValues(t, 1, atomic.LoadInt64(calls))

	// 5s later: inside the poll window, same price, no call.
	px = a.PriceFor("AAPL", t0.Add(5*time.Second))
	assert.Equal(t, 173.50, px)
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))

	// 16s later: window elapsed, refetch.
	px = a.PriceFor("AAPL", t0.Add(16*time.Second))
	assert.Equal(t, 173.50, px)
	assert.EqualValues(t, 2, atomic.LoadInt64(calls))
}

func TestAlphaRateLimitIsPerSymbol(t *testing.T) {
	srv, calls := newTestProvider(t, "99.00", http.StatusOK)
	a := newAlpha(t, srv, 15*time.Second)

	t0 := time.Now()
	a.PriceFor("AAPL", t0)
	a.PriceFor("TSLA", t0)
	assert.EqualValues(t, 2, atomic.LoadInt64(calls))
}

func TestAlphaFallsBackOnServerError(t *testing.T) {
	srv, _ := newTestProvider(t, "", http.StatusInternalServerError)
	a := newAlpha(t, srv, 15*time.Second)

	px := a.PriceFor("AAPL", time.Now())
	assert.GreaterOrEqual(t, px, 1.0, "fallback must still produce a plausible price")
}

func TestAlphaFallsBackOnMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note": "rate limit exceeded"}`)
	}))
	defer srv.Close()
	a := newAlpha(t, srv, 15*time.Second)

	px := a.PriceFor("AAPL", time.Now())
	assert.GreaterOrEqual(t, px, 1.0)
}

func TestAlphaFallbackEvolvesLastFetchedPrice(t *testing.T) {
	srv, _ := newTestProvider(t, "200.00", http.StatusOK)
	a := newAlpha(t, srv, 15*time.Second)

	t0 := time.Now()
	require.Equal(t, 200.00, a.PriceFor("AAPL", t0))

	srv.Close()

	// Upstream gone: the walk continues from the fetched price.
	px := a.PriceFor("AAPL", t0.Add(16*time.Second))
	assert.InDelta(t, 200.00, px, 200.00*driftRange)
}

func TestAlphaConcurrentCallsShareOneFetch(t *testing.T) {
	var calls int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		<-release
		fmt.Fprint(w, `{"Global Quote": {"05. price": "120.00"}}`)
	}))
	defer srv.Close()

	var once sync.Once
	releaseFetch := func() { once.Do(func() { close(release) }) }
	defer releaseFetch()

	a := newAlpha(t, srv, 15*time.Second)

	t0 := time.Now()
	first := make(chan float64, 1)
	go func() { first <- a.PriceFor("AAPL", t0) }()

	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) == 1 },
		time.Second, 5*time.Millisecond)

	// A second caller while the fetch is in flight is served locally and
	// must not stack a second upstream request.
	px := a.PriceFor("AAPL", t0)
	assert.GreaterOrEqual(t, px, 1.0)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))

	releaseFetch()
	assert.Equal(t, 120.00, <-first)
}

func TestAlphaWithoutKeySkipsFetch(t *testing.T) {
	srv, calls := newTestProvider(t, "10.00", http.StatusOK)
	a := NewAlphaVantage("", 15*time.Second, NewSimulated(true), zap.NewNop())
	a.SetBaseURL(srv.URL)

	px := a.PriceFor("AAPL", time.Now())
	assert.GreaterOrEqual(t, px, 1.0)
	assert.EqualValues(t, 0, atomic.LoadInt64(calls))
}
