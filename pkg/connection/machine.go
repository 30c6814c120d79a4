package connection

import (
	"time"

	"github.com/google/uuid"
)

// Default timing parameters.
const (
	DefaultHandshakeRetryInterval = 500 * time.Millisecond
	DefaultMaxHandshakeAttempts   = 5
	DefaultInactivityTimeout      = 5 * time.Second
	DefaultKeepaliveInterval      = time.Second
)

// Config configures a Machine.
type Config struct {
	// HandshakeRetryInterval is the wait before resending a handshake request.
	HandshakeRetryInterval time.Duration

	// MaxHandshakeAttempts is the number of handshake requests sent before
	// the attempt fails.
	MaxHandshakeAttempts int

	// InactivityTimeout is how long a connected peer may stay silent.
	InactivityTimeout time.Duration

	// KeepaliveInterval is the period between keepalive pings.
	KeepaliveInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.HandshakeRetryInterval <= 0 {
		c.HandshakeRetryInterval = DefaultHandshakeRetryInterval
	}
	if c.MaxHandshakeAttempts <= 0 {
		c.MaxHandshakeAttempts = DefaultMaxHandshakeAttempts
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
}

// Machine is the connection state machine.
//
// Transitions:
//
//	Idle/Disconnected --Start--> Connecting
//	Connecting --valid response--> Connected
//	Connecting --retries exhausted--> Disconnected (HandshakeFailed)
//	Connected --silence--> Disconnected (Timeout)
//	Connecting/Connected --Close(reason)--> Disconnected (reason)
//
// Not safe for concurrent use.
type Machine struct {
	config Config

	state    State
	reason   Reason
	clientID uint16

	nonce         uuid.UUID
	attempts      int
	lastHandshake time.Time

	lastActivity time.Time

	lastKeepalive   time.Time
	pingID          uint8
	pingSent        time.Time
	pingOutstanding bool
}

// NewMachine creates a machine in StateIdle.
func NewMachine(config Config) *Machine {
	config.applyDefaults()
	return &Machine{config: config}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Reason returns why the last connection ended, or ReasonNone.
func (m *Machine) Reason() Reason {
	return m.reason
}

// ClientID returns the ID assigned by the peer. 0 until Connected.
func (m *Machine) ClientID() uint16 {
	return m.clientID
}

// IsConnecting returns true while the handshake is in progress.
func (m *Machine) IsConnecting() bool {
	return m.state == StateConnecting
}

// IsConnected returns true once the handshake completed.
func (m *Machine) IsConnected() bool {
	return m.state == StateConnected
}

// Nonce returns the nonce of the current handshake.
func (m *Machine) Nonce() uuid.UUID {
	return m.nonce
}

// HandshakeAttempts returns the number of handshake requests sent so far.
func (m *Machine) HandshakeAttempts() int {
	return m.attempts
}

// Start begins a handshake. The caller sends the first request carrying
// the returned nonce.
func (m *Machine) Start(now time.Time) (uuid.UUID, error) {
	if m.state.IsActive() {
		return uuid.Nil, ErrAlreadyConnected
	}

	m.state = StateConnecting
	m.reason = ReasonNone
	m.clientID = 0
	m.nonce = uuid.New()
	m.attempts = 1
	m.lastHandshake = now
	m.lastActivity = now
	m.pingOutstanding = false

	return m.nonce, nil
}

// HandshakeDue checks the handshake retry timer.
func (m *Machine) HandshakeDue(now time.Time) HandshakeAction {
	if m.state != StateConnecting {
		return HandshakeNone
	}
	if now.Sub(m.lastHandshake) < m.config.HandshakeRetryInterval {
		return HandshakeNone
	}

	if m.attempts >= m.config.MaxHandshakeAttempts {
		m.state = StateDisconnected
		m.reason = ReasonHandshakeFailed
		return HandshakeFail
	}

	m.attempts++
	m.lastHandshake = now
	return HandshakeResend
}

// OnHandshakeResponse completes the handshake if the response echoes the
// current nonce and carries a non-zero client ID. Returns true on the
// transition to Connected; stale or duplicate responses return false.
func (m *Machine) OnHandshakeResponse(clientID uint16, nonce []byte, now time.Time) bool {
	if m.state != StateConnecting || clientID == 0 {
		return false
	}
	if len(nonce) != len(m.nonce) || string(nonce) != string(m.nonce[:]) {
		return false
	}

	m.state = StateConnected
	m.clientID = clientID
	m.lastActivity = now
	m.lastKeepalive = now
	return true
}

// OnActivity records inbound traffic from the peer.
func (m *Machine) OnActivity(now time.Time) {
	if m.state.IsActive() {
		m.lastActivity = now
	}
}

// CheckTimeout moves a silent connection to Disconnected.
// Returns true on that transition.
func (m *Machine) CheckTimeout(now time.Time) bool {
	if m.state != StateConnected {
		return false
	}
	if now.Sub(m.lastActivity) < m.config.InactivityTimeout {
		return false
	}

	m.state = StateDisconnected
	m.reason = ReasonTimeout
	return true
}

// KeepaliveDue returns a fresh ping id when a keepalive should be sent.
func (m *Machine) KeepaliveDue(now time.Time) (pingID uint8, due bool) {
	if m.state != StateConnected {
		return 0, false
	}
	if now.Sub(m.lastKeepalive) < m.config.KeepaliveInterval {
		return 0, false
	}

	m.pingID++
	m.pingSent = now
	m.pingOutstanding = true
	m.lastKeepalive = now
	return m.pingID, true
}

// OnKeepaliveEcho matches an echoed ping against the outstanding one and
// returns the round-trip time. A ping that does not match returns false,
// and the caller treats it as a ping from the peer.
func (m *Machine) OnKeepaliveEcho(pingID uint8, now time.Time) (time.Duration, bool) {
	if !m.pingOutstanding || pingID != m.pingID {
		return 0, false
	}
	m.pingOutstanding = false
	return now.Sub(m.pingSent), true
}

// Close moves an active connection to Disconnected with reason.
// Returns false, changing nothing, if the machine is not active.
func (m *Machine) Close(reason Reason) bool {
	if !m.state.IsActive() {
		return false
	}

	m.state = StateDisconnected
	m.reason = reason
	m.pingOutstanding = false
	return true
}
