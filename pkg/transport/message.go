// Package transport provides datagram I/O for the reliable UDP client.
//
// The package provides:
//   - UDP: a net.PacketConn wrapper whose read loop hands each datagram,
//     in a pooled buffer, to a MessageHandler
//   - Queue: the bounded, thread-safe handoff from the read loop to the
//     tick loop
//   - Factory: real sockets (NetFactory) or in-memory pipes (PipeFactory)
//   - Pipe: a virtual network with loss, delay and duplication for tests
package transport

import (
	"net"

	"github.com/backkem/rudp/pkg/message"
)

// ReceivedMessage is an incoming datagram.
// The Buffer belongs to the receiver, which must Release it.
type ReceivedMessage struct {
	// Buffer holds the raw datagram bytes.
	Buffer *message.Buffer
	// PeerAddr identifies the source of the datagram.
	PeerAddr net.Addr
}

// Data returns the raw datagram bytes.
func (m *ReceivedMessage) Data() []byte {
	return m.Buffer.Bytes()
}

// Release returns the buffer to its pool.
func (m *ReceivedMessage) Release() {
	m.Buffer.Release()
}

// MessageHandler is called for each received datagram.
// It runs on the read loop goroutine and should only enqueue.
type MessageHandler func(msg *ReceivedMessage)
