package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionIDsAreUnique(t *testing.T) {
	a := NewSession(nil, zap.NewNop())
	b := NewSession(nil, zap.NewNop())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSendQueuesWithoutBlocking(t *testing.T) {
	s := NewSession(nil, zap.NewNop())
	require.NoError(t, s.Send([]byte(`{"type":"QUOTE"}`)))
}

func TestSendFailsWhenBufferFull(t *testing.T) {
	s := NewSession(nil, zap.NewNop())
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, s.Send([]byte("x")))
	}
	assert.ErrorIs(t, s.Send([]byte("x")), ErrSlowSession)
}

func TestWritePumpExitsPromptlyOnClose(t *testing.T) {
	s := NewSession(nil, zap.NewNop())

	pumpDone := make(chan struct{})
	go func() {
		s.WritePump()
		close(pumpDone)
	}()

	s.Close()

	// The pump must not sit idle until the next ping fires.
	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("WritePump did not exit after Close")
	}
}

func TestSendFailsAfterClose(t *testing.T) {
	s := NewSession(nil, zap.NewNop())
	s.Close()
	assert.ErrorIs(t, s.Send([]byte("x")), ErrSessionClosed)

	// Close is idempotent
	s.Close()
	assert.ErrorIs(t, s.Send([]byte("x")), ErrSessionClosed)
}
