package client

import (
	"fmt"
	"time"

	"github.com/backkem/rudp/pkg/clock"
	"github.com/backkem/rudp/pkg/connection"
	"github.com/backkem/rudp/pkg/reliability"
	"github.com/backkem/rudp/pkg/rtt"
	"github.com/backkem/rudp/pkg/transport"
	"github.com/pion/logging"
)

// Config holds all configuration for a Client.
// Zero values select the defaults listed on each field.
type Config struct {
	// Handshake
	HandshakeRetryInterval time.Duration // Wait before resending a handshake request (default: 500ms)
	MaxHandshakeAttempts   int           // Handshake requests sent before giving up (default: 5)

	// Liveness
	InactivityTimeout time.Duration // Silence that ends a connection (default: 5s)
	KeepaliveInterval time.Duration // Period between keepalive pings (default: 1s)

	// Reliability
	DefaultMaxSendAttempts int           // Attempts for Send with maxSendAttempts 0 (default: 5)
	InitialRetryInterval   time.Duration // Retry base while RTT is unknown (default: 300ms)
	MinRetryInterval       time.Duration // Lower bound of the RTT-derived retry base (default: 50ms)
	MaxRetryInterval       time.Duration // Upper bound of any retry timeout (default: 5s)
	StandaloneAckDelay     time.Duration // Wait for a piggyback before a standalone ack (default: 0)

	// Resources
	InboundQueueSize int // Datagrams buffered between Ticks (default: 256)
	RTTHistorySize   int // RTT samples kept for RTTStats (default: 32)
	LocalPort        int // Local UDP port (default: 0, ephemeral)

	// Callbacks - Optional
	EventHandler EventHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Advanced - Internal use / Testing
	Clock            clock.Clock              // Time source (default: clock.Real)
	TransportFactory transport.Factory        // Socket factory (default: transport.NetFactory)
	RandomSource     reliability.RandomSource // Backoff jitter (default: math/rand)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"HandshakeRetryInterval", c.HandshakeRetryInterval},
		{"InactivityTimeout", c.InactivityTimeout},
		{"KeepaliveInterval", c.KeepaliveInterval},
		{"InitialRetryInterval", c.InitialRetryInterval},
		{"MinRetryInterval", c.MinRetryInterval},
		{"MaxRetryInterval", c.MaxRetryInterval},
		{"StandaloneAckDelay", c.StandaloneAckDelay},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidConfig, d.name)
		}
	}

	if c.MaxHandshakeAttempts < 0 {
		return fmt.Errorf("%w: MaxHandshakeAttempts is negative", ErrInvalidConfig)
	}
	if c.DefaultMaxSendAttempts < 0 {
		return fmt.Errorf("%w: DefaultMaxSendAttempts is negative", ErrInvalidConfig)
	}
	if c.InboundQueueSize < 0 {
		return fmt.Errorf("%w: InboundQueueSize is negative", ErrInvalidConfig)
	}
	if c.RTTHistorySize < 0 {
		return fmt.Errorf("%w: RTTHistorySize is negative", ErrInvalidConfig)
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return fmt.Errorf("%w: LocalPort %d out of range", ErrInvalidConfig, c.LocalPort)
	}
	if c.MinRetryInterval > 0 && c.MaxRetryInterval > 0 && c.MinRetryInterval > c.MaxRetryInterval {
		return fmt.Errorf("%w: MinRetryInterval exceeds MaxRetryInterval", ErrInvalidConfig)
	}

	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.HandshakeRetryInterval == 0 {
		c.HandshakeRetryInterval = connection.DefaultHandshakeRetryInterval
	}
	if c.MaxHandshakeAttempts == 0 {
		c.MaxHandshakeAttempts = connection.DefaultMaxHandshakeAttempts
	}
	if c.InactivityTimeout == 0 {
		c.InactivityTimeout = connection.DefaultInactivityTimeout
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = connection.DefaultKeepaliveInterval
	}
	if c.DefaultMaxSendAttempts == 0 {
		c.DefaultMaxSendAttempts = reliability.DefaultMaxSendAttempts
	}
	if c.InitialRetryInterval == 0 {
		c.InitialRetryInterval = reliability.DefaultInitialRetryInterval
	}
	if c.MinRetryInterval == 0 {
		c.MinRetryInterval = reliability.DefaultMinRetryInterval
	}
	if c.MaxRetryInterval == 0 {
		c.MaxRetryInterval = reliability.DefaultMaxRetryInterval
	}
	if c.InboundQueueSize == 0 {
		c.InboundQueueSize = transport.DefaultQueueSize
	}
	if c.RTTHistorySize == 0 {
		c.RTTHistorySize = rtt.DefaultHistorySize
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.TransportFactory == nil {
		c.TransportFactory = transport.NetFactory{}
	}
	if c.RandomSource == nil {
		c.RandomSource = reliability.DefaultRandomSource
	}
}

// connectionConfig returns the state machine timing from config.
func (c *Config) connectionConfig() connection.Config {
	return connection.Config{
		HandshakeRetryInterval: c.HandshakeRetryInterval,
		MaxHandshakeAttempts:   c.MaxHandshakeAttempts,
		InactivityTimeout:      c.InactivityTimeout,
		KeepaliveInterval:      c.KeepaliveInterval,
	}
}
