// Package message implements the datagram wire format of the reliable UDP
// protocol and the buffers that carry it.
//
// The package provides:
//   - Header and Frame encoding/decoding
//   - MessageType, SendMode and Ownership enums
//   - Pool and Buffer, the pooled byte storage shared between the receive
//     goroutine and the tick loop
//   - Message, an application payload paired with its send mode
package message

// MessageType identifies the kind of datagram.
// It occupies the low nibble of the first header byte.
type MessageType uint8

const (
	// TypeHandshakeRequest opens a connection. Payload is a NonceSize nonce.
	TypeHandshakeRequest MessageType = 1

	// TypeHandshakeResponse accepts a connection and assigns a client ID.
	// Payload echoes the request nonce.
	TypeHandshakeResponse MessageType = 2

	// TypeReliable carries a sequenced application payload that must be acknowledged.
	TypeReliable MessageType = 3

	// TypeUnreliable carries an application payload with no delivery tracking.
	TypeUnreliable MessageType = 4

	// TypeAck is a standalone acknowledgement.
	TypeAck MessageType = 5

	// TypeDisconnect is a best-effort notice that the sender is leaving.
	TypeDisconnect MessageType = 6

	// TypeKeepalive is a ping. The remote echoes it back with the same ping id.
	TypeKeepalive MessageType = 7

	// TypePeerJoin announces that another client joined the remote endpoint.
	TypePeerJoin MessageType = 8

	// TypePeerLeave announces that another client left the remote endpoint.
	TypePeerLeave MessageType = 9
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case TypeHandshakeRequest:
		return "HandshakeRequest"
	case TypeHandshakeResponse:
		return "HandshakeResponse"
	case TypeReliable:
		return "Reliable"
	case TypeUnreliable:
		return "Unreliable"
	case TypeAck:
		return "Ack"
	case TypeDisconnect:
		return "Disconnect"
	case TypeKeepalive:
		return "Keepalive"
	case TypePeerJoin:
		return "PeerJoin"
	case TypePeerLeave:
		return "PeerLeave"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the message type is a defined value.
func (t MessageType) IsValid() bool {
	return t >= TypeHandshakeRequest && t <= TypePeerLeave
}

// IsSequenced returns true if datagrams of this type carry a sequence number
// and are acknowledged by the receiver.
func (t MessageType) IsSequenced() bool {
	switch t {
	case TypeReliable, TypePeerJoin, TypePeerLeave:
		return true
	default:
		return false
	}
}

// HasClientID returns true if datagrams of this type carry a client ID.
func (t MessageType) HasClientID() bool {
	switch t {
	case TypeHandshakeResponse, TypePeerJoin, TypePeerLeave:
		return true
	default:
		return false
	}
}

// SendMode selects the delivery guarantee for an application message.
type SendMode uint8

const (
	// SendModeUnreliable sends once with no acknowledgement.
	SendModeUnreliable SendMode = iota

	// SendModeReliable retransmits until acknowledged or the attempt limit is hit.
	SendModeReliable
)

// String returns a human-readable name for the send mode.
func (m SendMode) String() string {
	switch m {
	case SendModeUnreliable:
		return "Unreliable"
	case SendModeReliable:
		return "Reliable"
	default:
		return "Unknown"
	}
}

// MessageType returns the wire type used to carry a message in this mode.
func (m SendMode) MessageType() MessageType {
	if m == SendModeReliable {
		return TypeReliable
	}
	return TypeUnreliable
}

// Ownership states who recycles a message buffer once it has been handed to Send.
type Ownership uint8

const (
	// RetainOwnership leaves the buffer with the caller. The caller must not
	// modify it until Send returns; the transport keeps its own copy of the
	// encoded datagram for retransmission.
	RetainOwnership Ownership = iota

	// TransferOwnership hands the buffer to the transport, which releases it
	// to its pool after the datagram is sent (unreliable) or once the send is
	// acknowledged, exhausted or discarded (reliable).
	TransferOwnership
)

// String returns a human-readable name for the ownership mode.
func (o Ownership) String() string {
	switch o {
	case RetainOwnership:
		return "Retain"
	case TransferOwnership:
		return "Transfer"
	default:
		return "Unknown"
	}
}
