package message

import (
	"encoding/binary"

	"github.com/backkem/rudp/pkg/sequence"
)

// Header is the protocol header at the front of every datagram.
// All multi-byte fields are little-endian on the wire.
type Header struct {
	// Type is the message type (bits 0-3 of byte 0).
	Type MessageType

	// Sequence is the sender's sequence number.
	// Present only when Type.IsSequenced().
	Sequence sequence.Seq

	// HasAck indicates acknowledgement fields are present (bit 7 of byte 0).
	// Always true for TypeAck; set on other types to piggyback an ack.
	HasAck bool

	// AckSequence is the most recent sequence the sender received.
	AckSequence sequence.Seq

	// AckBits confirms earlier sequences: bit i set means AckSequence-1-i
	// was received.
	AckBits uint32

	// ClientID is the assigned client ID.
	// Present only when Type.HasClientID().
	ClientID uint16
}

// hasAckFields reports whether the acknowledgement fields are on the wire.
func (h *Header) hasAckFields() bool {
	return h.HasAck || h.Type == TypeAck
}

// Size returns the encoded size of the header in bytes.
func (h *Header) Size() int {
	size := MinHeaderSize

	if h.Type.IsSequenced() {
		size += SequenceSize
	}
	if h.hasAckFields() {
		size += AckSize
	}
	if h.Type.HasClientID() {
		size += ClientIDSize
	}

	return size
}

// Encode serializes the header to bytes.
func (h *Header) Encode() []byte {
	buf := make([]byte, h.Size())
	h.EncodeTo(buf)
	return buf
}

// EncodeTo serializes the header into the provided buffer.
// The buffer must be at least Size() bytes long.
// Returns the number of bytes written.
func (h *Header) EncodeTo(buf []byte) int {
	offset := 0

	flags := uint8(h.Type) & typeMask
	if h.hasAckFields() {
		flags |= flagAck
	}
	buf[offset] = flags
	offset++

	if h.Type.IsSequenced() {
		binary.LittleEndian.PutUint16(buf[offset:], uint16(h.Sequence))
		offset += SequenceSize
	}

	if h.hasAckFields() {
		binary.LittleEndian.PutUint16(buf[offset:], uint16(h.AckSequence))
		binary.LittleEndian.PutUint32(buf[offset+2:], h.AckBits)
		offset += AckSize
	}

	if h.Type.HasClientID() {
		binary.LittleEndian.PutUint16(buf[offset:], h.ClientID)
		offset += ClientIDSize
	}

	return offset
}

// Decode deserializes a header from bytes.
// Returns the number of bytes consumed from data.
func (h *Header) Decode(data []byte) (int, error) {
	if len(data) < MinHeaderSize {
		return 0, ErrMessageTooShort
	}

	flags := data[0]
	if flags&reservedMask != 0 {
		return 0, ErrReservedBits
	}

	h.Type = MessageType(flags & typeMask)
	if !h.Type.IsValid() {
		return 0, ErrInvalidType
	}
	h.HasAck = flags&flagAck != 0 || h.Type == TypeAck

	if len(data) < h.Size() {
		return 0, ErrMessageTooShort
	}

	offset := MinHeaderSize

	if h.Type.IsSequenced() {
		h.Sequence = sequence.Seq(binary.LittleEndian.Uint16(data[offset:]))
		offset += SequenceSize
	} else {
		h.Sequence = 0
	}

	if h.HasAck {
		h.AckSequence = sequence.Seq(binary.LittleEndian.Uint16(data[offset:]))
		h.AckBits = binary.LittleEndian.Uint32(data[offset+2:])
		offset += AckSize
	} else {
		h.AckSequence = 0
		h.AckBits = 0
	}

	if h.Type.HasClientID() {
		h.ClientID = binary.LittleEndian.Uint16(data[offset:])
		offset += ClientIDSize
	} else {
		h.ClientID = 0
	}

	if h.Type == TypeHandshakeResponse && h.ClientID == 0 {
		return 0, ErrInvalidClientID
	}

	return offset, nil
}
