// Package connection implements the client connection lifecycle.
//
// A Machine moves through Idle, Connecting, Connected and Disconnected.
// It owns the handshake retry schedule, the inactivity timeout and the
// keepalive ping schedule. Every timer is a deadline compared against the
// time passed in by the caller, so the machine never blocks and never
// starts goroutines.
package connection

import "github.com/backkem/rudp/pkg/reliability"

// State is the lifecycle state of a connection.
type State uint8

const (
	// StateIdle is the state of a client that has never connected.
	StateIdle State = iota

	// StateConnecting means a handshake is in progress.
	StateConnecting

	// StateConnected means the handshake completed and a client ID is assigned.
	StateConnected

	// StateDisconnected means a connection attempt or connection ended.
	StateDisconnected
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// IsActive returns true if the state is Connecting or Connected.
func (s State) IsActive() bool {
	return s == StateConnecting || s == StateConnected
}

// Reason explains why a connection ended.
type Reason uint8

const (
	// ReasonNone is the zero value for a connection that has not ended.
	ReasonNone Reason = iota

	// ReasonHandshakeFailed means no handshake response arrived within the
	// retry budget.
	ReasonHandshakeFailed

	// ReasonTimeout means no traffic arrived within the inactivity timeout.
	ReasonTimeout

	// ReasonRemote means the peer sent a disconnect notice.
	ReasonRemote

	// ReasonLocal means Disconnect was called.
	ReasonLocal

	// ReasonSendFailure means a reliable send exhausted its attempts.
	ReasonSendFailure
)

// String returns a human-readable name for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonHandshakeFailed:
		return "HandshakeFailed"
	case ReasonTimeout:
		return "Timeout"
	case ReasonRemote:
		return "Remote"
	case ReasonLocal:
		return "Local"
	case ReasonSendFailure:
		return "SendFailure"
	default:
		return "Unknown"
	}
}

// Err returns the sentinel error for the reason, or nil for ReasonNone.
func (r Reason) Err() error {
	switch r {
	case ReasonHandshakeFailed:
		return ErrConnectionFailed
	case ReasonTimeout:
		return ErrTimedOut
	case ReasonRemote:
		return ErrRemoteDisconnected
	case ReasonLocal:
		return ErrLocalDisconnect
	case ReasonSendFailure:
		return reliability.ErrDeliveryFailed
	default:
		return nil
	}
}

// HandshakeAction tells the caller what to do about the handshake timer.
type HandshakeAction uint8

const (
	// HandshakeNone means nothing is due.
	HandshakeNone HandshakeAction = iota

	// HandshakeResend means the request should be sent again.
	HandshakeResend

	// HandshakeFail means the retry budget is exhausted and the machine
	// moved to Disconnected with ReasonHandshakeFailed.
	HandshakeFail
)

// String returns a human-readable name for the action.
func (a HandshakeAction) String() string {
	switch a {
	case HandshakeNone:
		return "None"
	case HandshakeResend:
		return "Resend"
	case HandshakeFail:
		return "Fail"
	default:
		return "Unknown"
	}
}
