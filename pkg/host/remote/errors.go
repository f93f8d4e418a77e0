package remote

import "errors"

// Sentinel errors for client conditions.
var (
	// ErrClosed is returned by calls made after the connection closed.
	ErrClosed = errors.New("remote: connection closed")

	// ErrCallTimeout is returned when the bridge does not answer in time.
	ErrCallTimeout = errors.New("remote: call timed out")

	// ErrForeignHandle is returned for handles not created by this client.
	ErrForeignHandle = errors.New("remote: handle not created by this client")

	// ErrUnexpectedFrame is returned when the peer sends a frame out of turn.
	ErrUnexpectedFrame = errors.New("remote: unexpected frame")
)
