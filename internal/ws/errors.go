package ws

import "errors"

// Sentinel errors for the broadcast layer. Callers and tests distinguish
// failure kinds with errors.Is rather than by matching log text.
var (
	// ErrHandshakeRejected indicates the connection was refused before the
	// websocket upgrade, for example because the token query parameter was
	// missing.
	ErrHandshakeRejected = errors.New("websocket handshake rejected")

	// ErrAuthenticationFailed indicates the presented credential could not be
	// verified. Malformed, expired and forged tokens all collapse into this
	// error so the client cannot probe which check failed.
	ErrAuthenticationFailed = errors.New("websocket authentication failed")

	// ErrDeliveryFailed indicates a frame could not be handed to one or more
	// recipients, typically because a session's send buffer was full or the
	// session was already closed.
	ErrDeliveryFailed = errors.New("event delivery failed")

	// ErrPublishUnavailable indicates the publish path itself is unusable,
	// for example because no registry is attached or the frame could not be
	// serialized.
	ErrPublishUnavailable = errors.New("event publishing unavailable")

	// ErrSessionClosed indicates an operation was attempted on a session that
	// has already been torn down.
	ErrSessionClosed = errors.New("session closed")
)
