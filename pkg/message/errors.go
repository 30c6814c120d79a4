package message

import "errors"

// Message layer errors.
var (
	// Header decoding errors
	ErrMessageTooShort = errors.New("message: data too short")
	ErrInvalidType     = errors.New("message: invalid message type")
	ErrReservedBits    = errors.New("message: reserved header bits set")
	ErrInvalidClientID = errors.New("message: handshake response with client ID 0")

	// Frame errors
	ErrMessageTooLarge = errors.New("message: exceeds maximum datagram size")
	ErrBufferTooSmall  = errors.New("message: destination buffer too small")

	// Buffer errors
	ErrBufferFull     = errors.New("message: buffer full")
	ErrBufferReleased = errors.New("message: buffer already released")
)

// Wire format constants.
const (
	// MaxDatagramSize is the largest datagram sent or accepted.
	// This is the IPv6 minimum MTU.
	MaxDatagramSize = 1280

	// MinHeaderSize is the size of a header with no optional fields.
	MinHeaderSize = 1

	// SequenceSize is the size of the sequence field.
	SequenceSize = 2

	// AckSize is the size of the acknowledgement fields.
	// AckSequence (2) + AckBits (4) = 6
	AckSize = 6

	// ClientIDSize is the size of the client ID field.
	ClientIDSize = 2

	// MaxHeaderSize is the size of a header with every optional field present.
	MaxHeaderSize = MinHeaderSize + SequenceSize + AckSize + ClientIDSize

	// MaxPayloadSize is the largest payload that always fits a datagram.
	MaxPayloadSize = MaxDatagramSize - MaxHeaderSize

	// NonceSize is the size of the handshake nonce.
	NonceSize = 16

	// PingSize is the size of the keepalive payload.
	PingSize = 1
)

// Header byte 0 layout.
const (
	// typeMask selects the message type (bits 0-3).
	typeMask uint8 = 0x0F

	// reservedMask covers bits 4-6, which must be zero.
	reservedMask uint8 = 0x70

	// flagAck marks that acknowledgement fields follow (bit 7).
	flagAck uint8 = 0x80
)
