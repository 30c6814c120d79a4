package transport

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/backkem/rudp/pkg/message"
	"github.com/pion/logging"
)

// DefaultPort is the default server port.
const DefaultPort = 7777

// UDP wraps a net.PacketConn and runs a read loop that delivers each
// received datagram to the configured MessageHandler.
type UDP struct {
	conn    net.PacketConn
	handler MessageHandler
	pool    *message.Pool
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     logging.LeveledLogger

	mu      sync.RWMutex
	started bool
	closed  bool
}

// UDPConfig configures the UDP transport.
type UDPConfig struct {
	// Conn is an optional pre-existing PacketConn to use.
	// If nil, a new connection will be created using ListenAddr.
	Conn net.PacketConn

	// ListenAddr is the address to listen on (e.g., ":7777").
	// Ignored if Conn is provided.
	ListenAddr string

	// MessageHandler is called for each received datagram.
	// Required.
	MessageHandler MessageHandler

	// Pool supplies receive buffers. If nil, a private pool is created.
	Pool *message.Pool

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// NewUDP creates a new UDP transport with the given configuration.
func NewUDP(config UDPConfig) (*UDP, error) {
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}

	u := &UDP{
		conn:    config.Conn,
		handler: config.MessageHandler,
		pool:    config.Pool,
		closeCh: make(chan struct{}),
	}

	if u.pool == nil {
		u.pool = message.NewPool(0)
	}

	if config.LoggerFactory != nil {
		u.log = config.LoggerFactory.NewLogger("transport-udp")
	}

	if u.conn == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}

		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, err
		}
		u.conn = conn
	}

	return u, nil
}

// Start begins the read loop.
func (u *UDP) Start() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.started {
		u.mu.Unlock()
		return ErrAlreadyStarted
	}
	u.started = true
	u.mu.Unlock()

	if u.log != nil {
		u.log.Infof("starting UDP transport on %s", u.conn.LocalAddr())
	}

	u.wg.Add(1)
	go u.readLoop()

	return nil
}

// Stop closes the transport and waits for the read loop to exit.
func (u *UDP) Stop() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.closed = true
	u.mu.Unlock()

	if u.log != nil {
		u.log.Info("stopping UDP transport")
	}

	close(u.closeCh)

	// Unblock a pending read before closing
	u.conn.SetReadDeadline(time.Now())
	u.conn.Close()
	u.wg.Wait()

	return nil
}

// Send writes a datagram to addr.
func (u *UDP) Send(data []byte, addr net.Addr) error {
	u.mu.RLock()
	if u.closed {
		u.mu.RUnlock()
		return ErrClosed
	}
	u.mu.RUnlock()

	if addr == nil {
		return ErrInvalidAddress
	}

	if len(data) > message.MaxDatagramSize {
		return ErrMessageTooLarge
	}

	if u.log != nil {
		u.log.Tracef("sending %d bytes to %v", len(data), addr)
	}

	if _, err := u.conn.WriteTo(data, addr); err != nil {
		if u.log != nil {
			u.log.Warnf("send failed: %v", err)
		}
		return err
	}

	return nil
}

// LocalAddr returns the local address the transport is bound to.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// readLoop reads datagrams and dispatches them.
func (u *UDP) readLoop() {
	defer u.wg.Done()

	for {
		select {
		case <-u.closeCh:
			return
		default:
		}

		buf := u.pool.Acquire()
		n, addr, err := u.conn.ReadFrom(buf.Raw())
		if err != nil {
			buf.Release()

			select {
			case <-u.closeCh:
				return
			default:
			}

			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				if u.log != nil {
					u.log.Debugf("UDP read loop ending: %v", err)
				}
				return
			}
			if u.log != nil {
				u.log.Warnf("UDP read error: %v", err)
			}
			continue
		}

		if n == 0 {
			buf.Release()
			continue
		}
		if n > message.MaxDatagramSize {
			if u.log != nil {
				u.log.Warnf("dropping oversized datagram from %v", addr)
			}
			buf.Release()
			continue
		}
		buf.SetLen(n)

		if u.log != nil {
			u.log.Tracef("received %d bytes from %v", n, addr)
		}

		u.handler(&ReceivedMessage{
			Buffer:   buf,
			PeerAddr: addr,
		})
	}
}
