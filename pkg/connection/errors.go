package connection

import "errors"

// Connection errors.
var (
	// ErrAlreadyConnected is returned by Start while Connecting or Connected.
	ErrAlreadyConnected = errors.New("connection: already connecting or connected")

	// ErrNotConnected is returned for operations that require Connected.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrConnectionFailed reports that the handshake retry budget was exhausted.
	ErrConnectionFailed = errors.New("connection: handshake failed")

	// ErrTimedOut reports that the peer went silent for the inactivity timeout.
	ErrTimedOut = errors.New("connection: timed out")

	// ErrRemoteDisconnected reports that the peer sent a disconnect notice.
	ErrRemoteDisconnected = errors.New("connection: disconnected by remote")

	// ErrLocalDisconnect reports that the connection was closed locally.
	ErrLocalDisconnect = errors.New("connection: disconnected locally")
)
