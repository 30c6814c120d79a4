package client

import (
	"errors"

	"github.com/backkem/rudp/pkg/connection"
	"github.com/backkem/rudp/pkg/message"
	"github.com/backkem/rudp/pkg/reliability"
	"github.com/backkem/rudp/pkg/transport"
)

// Client errors. Most alias the sentinel of the layer that detects the
// condition, so errors.Is works with either name.
var (
	// ErrInvalidAddress is returned by Connect for a malformed host address.
	ErrInvalidAddress = transport.ErrInvalidAddress

	// ErrNotConnected is returned by Send outside the Connected state.
	ErrNotConnected = connection.ErrNotConnected

	// ErrAlreadyConnected is returned by Connect while Connecting or Connected.
	ErrAlreadyConnected = connection.ErrAlreadyConnected

	// ErrConnectionFailed is carried by EventConnectionFailed when the
	// handshake retry budget is exhausted.
	ErrConnectionFailed = connection.ErrConnectionFailed

	// ErrDeliveryFailed is carried by EventDisconnected when a reliable
	// send exhausted its attempts.
	ErrDeliveryFailed = reliability.ErrDeliveryFailed

	// ErrRemoteDisconnected is carried by EventDisconnected when the peer
	// sent a disconnect notice.
	ErrRemoteDisconnected = connection.ErrRemoteDisconnected

	// ErrTimedOut is carried by EventDisconnected when the peer went silent.
	ErrTimedOut = connection.ErrTimedOut

	// ErrLocalDisconnect is carried by EventDisconnected after Disconnect.
	ErrLocalDisconnect = connection.ErrLocalDisconnect

	// ErrMessageTooLarge is returned by Send for a payload that does not
	// fit in one datagram.
	ErrMessageTooLarge = message.ErrMessageTooLarge

	// ErrSendWindowFull is returned by Send when too many reliable
	// messages are awaiting acknowledgement.
	ErrSendWindowFull = reliability.ErrSendWindowFull

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client: closed")

	// ErrInvalidConfig is returned by New when Config validation fails.
	ErrInvalidConfig = errors.New("client: invalid configuration")
)
