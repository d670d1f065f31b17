package hmip

import "errors"

// Sentinel errors for hub communication.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a closed session.
	ErrNotConnected = errors.New("hmip: not connected")

	// ErrConnectionFailed is returned when the initial dial or handshake fails.
	ErrConnectionFailed = errors.New("hmip: connection failed")

	// ErrConnectionLost is returned when the socket drops while requests are in flight.
	ErrConnectionLost = errors.New("hmip: connection lost")

	// ErrRequestTimeout is returned when the hub does not answer a request in time.
	ErrRequestTimeout = errors.New("hmip: request timed out")

	// ErrRequestRejected is returned when the hub answers with a non-2xx code.
	ErrRequestRejected = errors.New("hmip: request rejected")

	// ErrMalformedFrame is returned for frames that cannot be decoded.
	// Malformed frames are counted and skipped; the session stays up.
	ErrMalformedFrame = errors.New("hmip: malformed frame")

	// ErrSessionClosed is returned when the client has been shut down.
	ErrSessionClosed = errors.New("hmip: session closed")
)
