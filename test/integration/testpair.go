// Package integration provides end-to-end tests of the client against a
// scripted server peer over real sockets and lossy in-memory links.
package integration

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/backkem/rudp/pkg/client"
	"github.com/backkem/rudp/pkg/transport"
	"github.com/pion/logging"
)

// TestPairConfig configures a TestPair.
type TestPairConfig struct {
	// Client is the base client configuration. EventHandler is replaced.
	Client client.Config

	// Peer configures the server side. Conn is filled in.
	Peer client.TestPeerConfig

	// Condition, when set, runs the pair over an in-memory pipe with this
	// network condition instead of loopback UDP.
	Condition *transport.NetworkCondition

	// LoggerFactory for logging. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// TestPair holds a client and the peer it talks to.
//
// Example usage:
//
//	pair := NewTestPair(t, TestPairConfig{Peer: client.TestPeerConfig{ClientID: 1}})
//	pair.Connect(t)
//	pair.Client.Send(...)
type TestPair struct {
	Client *client.Client
	Peer   *client.TestPeer

	// Address is the peer address passed to Connect.
	Address string

	mu     sync.Mutex
	events []client.Event
}

// NewTestPair creates a client and a peer. Both are closed by t.Cleanup.
func NewTestPair(t *testing.T, config TestPairConfig) *TestPair {
	t.Helper()

	lf := config.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}

	pair := &TestPair{}

	var peerConn net.PacketConn
	if config.Condition != nil {
		f0, f1 := transport.NewPipeFactoryPair()
		f0.SetCondition(*config.Condition)
		conn, err := f1.CreateUDPConn(0)
		if err != nil {
			t.Fatalf("pipe: %v", err)
		}
		peerConn = conn
		config.Client.TransportFactory = f0
		pair.Address = "127.0.0.1:7777"
		t.Cleanup(func() { f0.Pipe().Close() })
	} else {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		peerConn = conn
		pair.Address = conn.LocalAddr().String()
	}

	config.Peer.Conn = peerConn
	config.Peer.LoggerFactory = lf
	peer, err := client.NewTestPeer(config.Peer)
	if err != nil {
		t.Fatalf("NewTestPeer failed: %v", err)
	}
	pair.Peer = peer

	config.Client.LoggerFactory = lf
	config.Client.EventHandler = pair.record
	c, err := client.New(config.Client)
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	pair.Client = c

	t.Cleanup(func() {
		c.Close()
		peer.Close()
	})

	return pair
}

func (p *TestPair) record(event client.Event) {
	// Payloads alias receive buffers; keep a copy.
	if e, ok := event.(client.EventMessageReceived); ok {
		e.Payload = append([]byte(nil), e.Payload...)
		event = e
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

// Events returns the events dispatched so far.
func (p *TestPair) Events() []client.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]client.Event(nil), p.events...)
}

// Messages returns the payloads of received messages in dispatch order.
func (p *TestPair) Messages() []string {
	var out []string
	for _, e := range p.Events() {
		if m, ok := e.(client.EventMessageReceived); ok {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// TickUntil ticks the client until cond holds or timeout expires.
func (p *TestPair) TickUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.Client.Tick()
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// TickFor ticks the client for d.
func (p *TestPair) TickFor(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		p.Client.Tick()
		time.Sleep(time.Millisecond)
	}
}

// Connect connects the client and waits for the handshake.
func (p *TestPair) Connect(t *testing.T) {
	t.Helper()

	if err := p.Client.Connect(p.Address); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !p.TickUntil(t, 5*time.Second, p.Client.IsConnected) {
		t.Fatalf("not connected, state %s", p.Client.State())
	}
}
