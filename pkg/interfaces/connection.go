package interfaces

// Connection is the transport-level handle the hub components see. The
// concrete implementation lives in internal/websocket; everything above
// the transport depends only on this interface so the hub, router and
// broadcaster can be tested without real sockets.
type Connection interface {
	// ID returns the ephemeral connection id assigned at registration.
	ID() string

	// Send queues a named event for delivery. It must never block the
	// caller; a full outbound buffer is an error.
	Send(event string, data any) error

	// Close tears down the underlying channel. Safe to call more than once.
	Close() error
}
