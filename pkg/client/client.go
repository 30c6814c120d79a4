package client

import (
	"fmt"
	"net"
	"time"

	"github.com/backkem/rudp/pkg/connection"
	"github.com/backkem/rudp/pkg/message"
	"github.com/backkem/rudp/pkg/reliability"
	"github.com/backkem/rudp/pkg/rtt"
	"github.com/backkem/rudp/pkg/sequence"
	"github.com/backkem/rudp/pkg/transport"
	"github.com/pion/logging"
)

// Client is the client endpoint of a reliable UDP connection.
type Client struct {
	config Config
	log    logging.LeveledLogger

	pool    *message.Pool
	inbound *transport.Queue
	udp     *transport.UDP
	peer    net.Addr

	machine *connection.Machine
	engine  *reliability.Engine

	events      []pendingEvent
	ticking     bool
	dispatching bool
	closed      bool

	// newCounter overrides the outbound sequence start. Tests only.
	newCounter func() *sequence.Counter
}

// New creates a client with the given configuration.
// No socket is opened until the first Connect.
func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	c := &Client{
		config:  config,
		pool:    message.NewPool(0),
		inbound: transport.NewQueue(config.InboundQueueSize),
		machine: connection.NewMachine(config.connectionConfig()),
	}

	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("client")
	}

	return c, nil
}

// Connect starts a handshake with the server at hostAddress ("host:port").
//
// A malformed address returns ErrInvalidAddress; the same error is also
// reported by an EventConnectionFailed on the next Tick. Network outcomes
// are reported only through events.
func (c *Client) Connect(hostAddress string) error {
	if c.closed {
		return ErrClosed
	}
	if c.machine.State().IsActive() {
		return ErrAlreadyConnected
	}

	addr, err := c.config.TransportFactory.ResolveAddr(hostAddress)
	if err != nil {
		if c.log != nil {
			c.log.Warnf("connect %q: %v", hostAddress, err)
		}
		c.queue(EventConnectionFailed{Err: err}, nil)
		return err
	}

	if err := c.openSocket(); err != nil {
		return err
	}

	// Anything still queued belongs to an earlier lifecycle.
	c.inbound.Clear()
	c.peer = addr

	counter := sequence.NewCounter()
	if c.newCounter != nil {
		counter = c.newCounter()
	}

	engine, err := reliability.NewEngine(reliability.EngineConfig{
		Send:                   c.sendDatagram,
		Clock:                  c.config.Clock,
		InitialRetryInterval:   c.config.InitialRetryInterval,
		MinRetryInterval:       c.config.MinRetryInterval,
		MaxRetryInterval:       c.config.MaxRetryInterval,
		StandaloneAckDelay:     c.config.StandaloneAckDelay,
		DefaultMaxSendAttempts: c.config.DefaultMaxSendAttempts,
		RandomSource:           c.config.RandomSource,
		RTTHistorySize:         c.config.RTTHistorySize,
		Counter:                counter,
		LoggerFactory:          c.config.LoggerFactory,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	nonce, err := c.machine.Start(c.config.Clock.Now())
	if err != nil {
		return err
	}

	if c.log != nil {
		c.log.Infof("connecting to %v", addr)
	}
	c.sendHandshake(nonce[:])

	return nil
}

// openSocket creates the UDP transport on first use.
func (c *Client) openSocket() error {
	if c.udp != nil {
		return nil
	}

	conn, err := c.config.TransportFactory.CreateUDPConn(c.config.LocalPort)
	if err != nil {
		return fmt.Errorf("client: open socket: %w", err)
	}

	udp, err := transport.NewUDP(transport.UDPConfig{
		Conn:           conn,
		MessageHandler: c.enqueue,
		Pool:           c.pool,
		LoggerFactory:  c.config.LoggerFactory,
	})
	if err != nil {
		conn.Close()
		return err
	}
	if err := udp.Start(); err != nil {
		udp.Stop()
		return err
	}

	c.udp = udp
	return nil
}

// enqueue runs on the receive goroutine.
func (c *Client) enqueue(msg *transport.ReceivedMessage) {
	if !c.inbound.Push(msg) {
		if c.log != nil {
			c.log.Warnf("inbound queue full, dropping %d bytes from %v", msg.Buffer.Len(), msg.PeerAddr)
		}
		msg.Release()
	}
}

// Tick processes everything that happened since the previous Tick:
// queued datagrams in arrival order, then handshake, inactivity, keepalive
// and retransmission timers, then event dispatch. Calls made from an
// EventHandler are ignored.
func (c *Client) Tick() {
	if c.ticking || c.closed {
		return
	}
	c.ticking = true
	defer func() { c.ticking = false }()

	now := c.config.Clock.Now()

	for _, msg := range c.inbound.Drain() {
		c.handleDatagram(msg, now)
	}

	c.pollTimers(now)
	c.dispatchEvents()
}

func (c *Client) handleDatagram(msg *transport.ReceivedMessage, now time.Time) {
	retained := false
	defer func() {
		if !retained {
			msg.Release()
		}
	}()

	if !c.machine.State().IsActive() {
		return
	}
	if !transport.SameAddr(msg.PeerAddr, c.peer) {
		if c.log != nil {
			c.log.Debugf("dropping datagram from foreign source %v", msg.PeerAddr)
		}
		return
	}

	frame, err := message.DecodeFrame(msg.Data())
	if err != nil {
		if c.log != nil {
			c.log.Warnf("dropping malformed datagram (%d bytes): %v", msg.Buffer.Len(), err)
		}
		return
	}

	c.machine.OnActivity(now)

	h := frame.Header
	if h.HasAck {
		c.handleAck(h.AckSequence, h.AckBits)
	}

	switch h.Type {
	case message.TypeHandshakeResponse:
		if c.machine.OnHandshakeResponse(h.ClientID, frame.Payload, now) {
			if c.log != nil {
				c.log.Infof("connected to %v as client %d", c.peer, h.ClientID)
			}
			c.queue(EventConnected{ClientID: h.ClientID}, nil)
		}

	case message.TypeReliable, message.TypePeerJoin, message.TypePeerLeave:
		if !c.machine.IsConnected() || !c.engine.Receive(h.Sequence) {
			return
		}
		switch h.Type {
		case message.TypeReliable:
			retained = true
			c.queue(EventMessageReceived{Type: h.Type, Payload: frame.Payload}, msg.Release)
		case message.TypePeerJoin:
			c.queue(EventClientConnected{ClientID: h.ClientID}, nil)
		case message.TypePeerLeave:
			c.queue(EventClientDisconnected{ClientID: h.ClientID}, nil)
		}

	case message.TypeUnreliable:
		if !c.machine.IsConnected() {
			return
		}
		retained = true
		c.queue(EventMessageReceived{Type: h.Type, Payload: frame.Payload}, msg.Release)

	case message.TypeDisconnect:
		if c.machine.Close(connection.ReasonRemote) {
			if c.log != nil {
				c.log.Infof("disconnected by %v", c.peer)
			}
			c.finish(connection.ReasonRemote, nil)
		}

	case message.TypeKeepalive:
		c.handleKeepalive(frame.Payload, now)
	}
}

func (c *Client) handleAck(ackSeq sequence.Seq, ackBits uint32) {
	if c.engine == nil {
		return
	}
	if result := c.engine.HandleAck(ackSeq, ackBits); result.Sampled {
		c.queueRTT()
	}
}

// handleKeepalive treats a ping matching the outstanding one as its echo,
// and echoes anything else back to the peer.
func (c *Client) handleKeepalive(payload []byte, now time.Time) {
	if !c.machine.IsConnected() || len(payload) < message.PingSize {
		return
	}

	if d, ok := c.machine.OnKeepaliveEcho(payload[0], now); ok {
		if c.engine.ObserveRTT(d) {
			c.queueRTT()
		}
		return
	}

	c.engine.SendUnreliable(message.TypeKeepalive, payload[:message.PingSize])
}

func (c *Client) pollTimers(now time.Time) {
	switch c.machine.HandshakeDue(now) {
	case connection.HandshakeResend:
		if c.log != nil {
			c.log.Debugf("resending handshake (attempt %d)", c.machine.HandshakeAttempts())
		}
		nonce := c.machine.Nonce()
		c.sendHandshake(nonce[:])

	case connection.HandshakeFail:
		if c.log != nil {
			c.log.Warnf("no handshake response from %v after %d attempts", c.peer, c.machine.HandshakeAttempts())
		}
		c.engine.Discard()
		c.queue(EventConnectionFailed{
			Err: fmt.Errorf("%w: no response from %v after %d attempts",
				ErrConnectionFailed, c.peer, c.machine.HandshakeAttempts()),
		}, nil)
		return
	}

	if c.machine.CheckTimeout(now) {
		if c.log != nil {
			c.log.Warnf("connection to %v timed out", c.peer)
		}
		c.finish(connection.ReasonTimeout, nil)
		return
	}

	if !c.machine.State().IsActive() {
		return
	}

	if pingID, due := c.machine.KeepaliveDue(now); due {
		c.engine.SendUnreliable(message.TypeKeepalive, []byte{pingID})
	}

	if err := c.engine.Poll(); err != nil {
		if c.log != nil {
			c.log.Warnf("delivery failed, disconnecting: %v", err)
		}
		c.machine.Close(connection.ReasonSendFailure)
		c.finish(connection.ReasonSendFailure, err)
		return
	}

	c.engine.FlushAcks()
}

// Send transmits msg to the server.
//
// For SendModeReliable the message is retransmitted until acknowledged or
// maxSendAttempts transmissions were made without one, at which point the
// connection is torn down. A maxSendAttempts of 0 selects
// Config.DefaultMaxSendAttempts. maxSendAttempts is ignored for
// SendModeUnreliable.
//
// With TransferOwnership the client releases msg once it no longer needs
// it: after acknowledgement, exhaustion or Disconnect for reliable sends,
// immediately for unreliable ones. If Send returns an error ownership is
// not transferred.
func (c *Client) Send(msg *message.Message, maxSendAttempts int, ownership message.Ownership) error {
	if c.closed {
		return ErrClosed
	}
	if !c.machine.IsConnected() {
		return ErrNotConnected
	}

	switch msg.Mode {
	case message.SendModeReliable:
		var release func()
		if ownership == message.TransferOwnership {
			release = msg.Release
		}
		if _, err := c.engine.SendReliable(msg.Payload(), maxSendAttempts, release); err != nil {
			return err
		}

	default:
		if err := c.engine.SendUnreliable(message.TypeUnreliable, msg.Payload()); err != nil {
			return err
		}
		if ownership == message.TransferOwnership {
			msg.Release()
		}
	}

	return nil
}

// NewMessage copies payload into a buffer from the client's pool.
func (c *Client) NewMessage(mode message.SendMode, payload []byte) (*message.Message, error) {
	return message.NewMessage(c.pool, mode, payload)
}

// Disconnect ends the current connection or connection attempt. A
// best-effort disconnect notice is sent and pending reliable sends are
// discarded. Calling it while not connected does nothing.
//
// Outside of Tick the resulting EventDisconnected is dispatched before
// Disconnect returns.
func (c *Client) Disconnect() {
	if !c.machine.State().IsActive() {
		return
	}

	c.engine.SendUnreliable(message.TypeDisconnect, nil)
	c.machine.Close(connection.ReasonLocal)

	if c.log != nil {
		c.log.Infof("disconnected from %v", c.peer)
	}
	c.finish(connection.ReasonLocal, nil)

	if !c.ticking {
		c.dispatchEvents()
	}
}

// Close disconnects and releases the socket. The client cannot be used
// afterwards.
func (c *Client) Close() error {
	if c.closed {
		return ErrClosed
	}

	c.Disconnect()
	c.closed = true

	var err error
	if c.udp != nil {
		err = c.udp.Stop()
		c.udp = nil
	}
	c.inbound.Clear()

	// Undelivered events may hold receive buffers.
	for _, ev := range c.events {
		if ev.release != nil {
			ev.release()
		}
	}
	c.events = nil

	return err
}

// finish discards reliability state and queues EventDisconnected for a
// connection the machine just closed with reason.
func (c *Client) finish(reason connection.Reason, err error) {
	c.engine.Discard()
	if err == nil {
		err = reason.Err()
	}
	c.queue(EventDisconnected{Reason: reason, Err: err}, nil)
}

func (c *Client) sendHandshake(nonce []byte) {
	if err := c.engine.SendUnreliable(message.TypeHandshakeRequest, nonce); err != nil && c.log != nil {
		c.log.Warnf("handshake request: %v", err)
	}
}

func (c *Client) sendDatagram(datagram []byte) error {
	if c.udp == nil {
		return transport.ErrClosed
	}
	return c.udp.Send(datagram, c.peer)
}

func (c *Client) queue(event Event, release func()) {
	c.events = append(c.events, pendingEvent{event: event, release: release})
}

func (c *Client) queueRTT() {
	c.queue(EventRTTUpdated{RTT: c.engine.RTT(), Smoothed: c.engine.SmoothedRTT()}, nil)
}

// dispatchEvents delivers queued events in order. Events queued by the
// handler are delivered in the same pass.
func (c *Client) dispatchEvents() {
	if c.dispatching {
		return
	}
	c.dispatching = true
	defer func() { c.dispatching = false }()

	for i := 0; i < len(c.events); i++ {
		ev := c.events[i]
		if c.config.EventHandler != nil {
			c.config.EventHandler(ev.event)
		}
		if ev.release != nil {
			ev.release()
		}
	}

	clear(c.events)
	c.events = c.events[:0]
}

// ID returns the client ID assigned by the server, or 0 before the first
// successful handshake.
func (c *Client) ID() uint16 {
	return c.machine.ClientID()
}

// State returns the connection state.
func (c *Client) State() connection.State {
	return c.machine.State()
}

// IsConnecting returns true while a handshake is in progress.
func (c *Client) IsConnecting() bool {
	return c.machine.IsConnecting()
}

// IsConnected returns true while connected.
func (c *Client) IsConnected() bool {
	return c.machine.IsConnected()
}

// RTT returns the latest round-trip sample, or rtt.Unknown.
func (c *Client) RTT() time.Duration {
	if c.engine == nil {
		return rtt.Unknown
	}
	return c.engine.RTT()
}

// SmoothedRTT returns the smoothed round-trip time, or rtt.Unknown.
func (c *Client) SmoothedRTT() time.Duration {
	if c.engine == nil {
		return rtt.Unknown
	}
	return c.engine.SmoothedRTT()
}

// RTTStats returns statistics over recent round-trip samples.
func (c *Client) RTTStats() rtt.Stats {
	if c.engine == nil {
		return rtt.Stats{Mean: rtt.Unknown, StdDev: rtt.Unknown, Min: rtt.Unknown}
	}
	return c.engine.RTTStats()
}

// PendingReliable returns the number of reliable sends awaiting acknowledgement.
func (c *Client) PendingReliable() int {
	if c.engine == nil {
		return 0
	}
	return c.engine.Pending()
}

// LocalAddr returns the local socket address, or nil before the first Connect.
func (c *Client) LocalAddr() net.Addr {
	if c.udp == nil {
		return nil
	}
	return c.udp.LocalAddr()
}

// DroppedDatagrams returns the number of datagrams dropped because the
// inbound queue was full.
func (c *Client) DroppedDatagrams() uint64 {
	return c.inbound.Dropped()
}
