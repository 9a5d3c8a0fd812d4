package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFirstPriceBecomesReference(t *testing.T) {
	s := NewStateStore()

	last, changePct := s.Observe("AAPL", 150.0)
	require.Equal(t, 150.0, last)
	require.Equal(t, 0.0, changePct)

	base, ok := s.Reference("AAPL")
	require.True(t, ok)
	assert.Equal(t, 150.0, base)
}

func TestObserveChangePctAgainstFixedBase(t *testing.T) {
	s := NewStateStore()

	s.Observe("AAPL", 100.0)
	_, changePct := s.Observe("AAPL", 123.0)
	assert.InDelta(t, 23.0, changePct, 1e-9)

	_, changePct = s.Observe("AAPL", 90.0)
	assert.InDelta(t, -10.0, changePct, 1e-9)

	// Reference never moves.
	base, _ := s.Reference("AAPL")
	assert.Equal(t, 100.0, base)
}

func TestObserveTracksLastPrice(t *testing.T) {
	s := NewStateStore()
	s.Observe("TSLA", 700.0)
	s.Observe("TSLA", 710.5)

	last, ok := s.LastPrice("TSLA")
	require.True(t, ok)
	assert.Equal(t, 710.5, last)
}

func TestObserveFloorsPrice(t *testing.T) {
	s := NewStateStore()
	last, _ := s.Observe("SUB1", 0.25)
	assert.Equal(t, 1.0, last)

	base, _ := s.Reference("SUB1")
	assert.Equal(t, 1.0, base)
}

func TestUnknownSymbolHasNoState(t *testing.T) {
	s := NewStateStore()
	_, ok := s.Reference("NOPE")
	assert.False(t, ok)
	_, ok = s.LastPrice("NOPE")
	assert.False(t, ok)
}

func TestObserveConcurrent(t *testing.T) {
	s := NewStateStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Observe("AAPL", float64(100+n))
				s.LastPrice("AAPL")
			}
		}(i)
	}
	wg.Wait()

	base, ok := s.Reference("AAPL")
	require.True(t, ok)
	assert.GreaterOrEqual(t, base, 100.0)
	assert.LessOrEqual(t, base, 108.0)
}
