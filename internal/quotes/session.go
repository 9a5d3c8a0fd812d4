// Package quotes implements the real-time quote distribution engine: it
// tracks which session watches which symbols, prices every watched symbol
// once per tick, and fans each quote out to its subscribers.
package quotes

// Session is a non-owning handle to one live subscriber connection. The
// connection-acceptance layer owns the connection; the engine only needs an
// identity and an outbound send path. Send must not block; a failed send
// marks the session dead and the engine removes it from the registry.
type Session interface {
	ID() string
	Send(data []byte) error
}
