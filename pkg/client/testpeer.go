package client

import (
	"net"
	"sync"
	"time"

	"github.com/backkem/rudp/pkg/message"
	"github.com/backkem/rudp/pkg/sequence"
	"github.com/backkem/rudp/pkg/transport"
	"github.com/pion/logging"
)

// TestPeerConfig configures a TestPeer.
type TestPeerConfig struct {
	// Conn is the peer's socket. Required.
	Conn net.PacketConn

	// ClientID is assigned in automatic handshake responses.
	// 0 leaves handshake requests unanswered.
	ClientID uint16

	// AutoAck acknowledges every sequenced message from the client.
	AutoAck bool

	// EchoKeepalive echoes keepalive pings back to the client.
	EchoKeepalive bool

	// InitialSequence is the first sequence number the peer sends.
	InitialSequence sequence.Seq

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// ReceivedFrame is a datagram the TestPeer received from the client.
// Payload is a copy.
type ReceivedFrame struct {
	Header  message.Header
	Payload []byte
}

// TestPeer plays the server side of the protocol for tests. It records
// every frame the client sends and can answer handshakes, acknowledge
// reliable messages and echo keepalives on its own, or be driven by hand.
//
// It works over any net.PacketConn, typically one end of a
// transport.PipeFactory pair or a loopback UDP socket.
type TestPeer struct {
	udp *transport.UDP
	log logging.LeveledLogger

	mu       sync.Mutex
	config   TestPeerConfig
	client   net.Addr
	frames   []ReceivedFrame
	counts   map[message.MessageType]int
	nonce    []byte
	window   *sequence.Window
	counter  *sequence.Counter
	notifyCh chan struct{}
}

// NewTestPeer creates and starts a TestPeer.
func NewTestPeer(config TestPeerConfig) (*TestPeer, error) {
	p := &TestPeer{
		config:   config,
		counts:   make(map[message.MessageType]int),
		window:   sequence.NewWindow(),
		counter:  sequence.NewCounterWithValue(config.InitialSequence),
		notifyCh: make(chan struct{}, 1),
	}

	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("testpeer")
	}

	udp, err := transport.NewUDP(transport.UDPConfig{
		Conn:           config.Conn,
		MessageHandler: p.handle,
		LoggerFactory:  config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	// The read loop replies through p.udp.
	p.udp = udp
	if err := udp.Start(); err != nil {
		return nil, err
	}

	return p, nil
}

// Close stops the peer and closes its socket.
func (p *TestPeer) Close() error {
	return p.udp.Stop()
}

// Addr returns the peer's local address.
func (p *TestPeer) Addr() net.Addr {
	return p.udp.LocalAddr()
}

func (p *TestPeer) handle(msg *transport.ReceivedMessage) {
	defer msg.Release()

	frame, err := message.DecodeFrame(msg.Data())
	if err != nil {
		if p.log != nil {
			p.log.Debugf("undecodable datagram: %v", err)
		}
		return
	}

	p.mu.Lock()
	p.client = msg.PeerAddr
	p.frames = append(p.frames, ReceivedFrame{
		Header:  frame.Header,
		Payload: append([]byte(nil), frame.Payload...),
	})
	p.counts[frame.Header.Type]++
	config := p.config

	var replies []message.Frame
	switch frame.Header.Type {
	case message.TypeHandshakeRequest:
		p.nonce = append([]byte(nil), frame.Payload...)
		if config.ClientID != 0 {
			replies = append(replies, message.Frame{
				Header:  message.Header{Type: message.TypeHandshakeResponse, ClientID: config.ClientID},
				Payload: p.nonce,
			})
		}

	case message.TypeReliable, message.TypePeerJoin, message.TypePeerLeave:
		if config.AutoAck {
			p.window.Accept(frame.Header.Sequence)
			latest, bits, _ := p.window.Ack()
			replies = append(replies, message.Frame{
				Header: message.Header{Type: message.TypeAck, AckSequence: latest, AckBits: bits},
			})
		}

	case message.TypeKeepalive:
		if config.EchoKeepalive {
			replies = append(replies, message.Frame{
				Header:  message.Header{Type: message.TypeKeepalive},
				Payload: append([]byte(nil), frame.Payload...),
			})
		}
	}
	client := p.client
	p.mu.Unlock()

	for _, reply := range replies {
		p.sendFrame(reply, client)
	}

	select {
	case p.notifyCh <- struct{}{}:
	default:
	}
}

func (p *TestPeer) sendFrame(frame message.Frame, to net.Addr) error {
	data, err := frame.Encode()
	if err != nil {
		return err
	}
	return p.udp.Send(data, to)
}

// clientAddr returns the source address of the last datagram from the client.
func (p *TestPeer) clientAddr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// SendRaw sends data to the client unmodified.
func (p *TestPeer) SendRaw(data []byte) error {
	return p.udp.Send(data, p.clientAddr())
}

// SendFrame sends an arbitrary frame to the client.
func (p *TestPeer) SendFrame(frame message.Frame) error {
	return p.sendFrame(frame, p.clientAddr())
}

// SendHandshakeResponse assigns clientID, echoing the last received nonce.
func (p *TestPeer) SendHandshakeResponse(clientID uint16) error {
	return p.SendFrame(message.Frame{
		Header:  message.Header{Type: message.TypeHandshakeResponse, ClientID: clientID},
		Payload: p.Nonce(),
	})
}

// SendReliable sends payload with the next sequence number.
func (p *TestPeer) SendReliable(payload []byte) (sequence.Seq, error) {
	p.mu.Lock()
	seq := p.counter.Next()
	p.mu.Unlock()
	return seq, p.SendReliableSeq(seq, payload)
}

// SendReliableSeq sends payload with an explicit sequence number, for
// replaying duplicates.
func (p *TestPeer) SendReliableSeq(seq sequence.Seq, payload []byte) error {
	return p.SendFrame(message.Frame{
		Header:  message.Header{Type: message.TypeReliable, Sequence: seq},
		Payload: payload,
	})
}

// SendUnreliable sends an unsequenced payload.
func (p *TestPeer) SendUnreliable(payload []byte) error {
	return p.SendFrame(message.Frame{
		Header:  message.Header{Type: message.TypeUnreliable},
		Payload: payload,
	})
}

// SendPeerJoin announces that clientID joined, using the next sequence number.
func (p *TestPeer) SendPeerJoin(clientID uint16) (sequence.Seq, error) {
	return p.sendPresence(message.TypePeerJoin, clientID)
}

// SendPeerLeave announces that clientID left, using the next sequence number.
func (p *TestPeer) SendPeerLeave(clientID uint16) (sequence.Seq, error) {
	return p.sendPresence(message.TypePeerLeave, clientID)
}

func (p *TestPeer) sendPresence(typ message.MessageType, clientID uint16) (sequence.Seq, error) {
	p.mu.Lock()
	seq := p.counter.Next()
	p.mu.Unlock()
	return seq, p.SendFrame(message.Frame{
		Header: message.Header{Type: typ, Sequence: seq, ClientID: clientID},
	})
}

// SendAck acknowledges ackSeq and the earlier sequences set in ackBits.
func (p *TestPeer) SendAck(ackSeq sequence.Seq, ackBits uint32) error {
	return p.SendFrame(message.Frame{
		Header: message.Header{Type: message.TypeAck, AckSequence: ackSeq, AckBits: ackBits},
	})
}

// SendDisconnect sends a disconnect notice.
func (p *TestPeer) SendDisconnect() error {
	return p.SendFrame(message.Frame{Header: message.Header{Type: message.TypeDisconnect}})
}

// SendKeepalive sends a ping with pingID.
func (p *TestPeer) SendKeepalive(pingID uint8) error {
	return p.SendFrame(message.Frame{
		Header:  message.Header{Type: message.TypeKeepalive},
		Payload: []byte{pingID},
	})
}

// SetClientID changes the ID used for automatic handshake responses.
func (p *TestPeer) SetClientID(id uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.ClientID = id
}

// SetAutoAck enables or disables automatic acknowledgements.
func (p *TestPeer) SetAutoAck(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.AutoAck = enabled
}

// Nonce returns the nonce of the last handshake request.
func (p *TestPeer) Nonce() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.nonce...)
}

// Count returns how many frames of type t the peer received.
func (p *TestPeer) Count(t message.MessageType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[t]
}

// Frames returns the received frames of type t in arrival order.
func (p *TestPeer) Frames(t message.MessageType) []ReceivedFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []ReceivedFrame
	for _, f := range p.frames {
		if f.Header.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// WaitFor blocks until at least n frames of type t were received or the
// timeout expires. Returns true if the count was reached.
func (p *TestPeer) WaitFor(t message.MessageType, n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if p.Count(t) >= n {
			return true
		}
		select {
		case <-p.notifyCh:
		case <-deadline.C:
			return p.Count(t) >= n
		}
	}
}
