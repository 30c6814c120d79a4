// Package reliability implements acknowledged delivery over an unreliable
// datagram channel.
//
// Reliable sends are held in a RetransmitTable and resent with exponential
// backoff until acknowledged or until their attempt limit is reached, at
// which point delivery has failed and the connection must be torn down.
// Acknowledgements carry the latest received sequence plus a 32-bit
// bitfield, and ride on outgoing datagrams when possible.
package reliability

import "time"

// Retransmission parameters.
const (
	// DefaultMaxSendAttempts is the attempt limit used when a caller passes 0.
	DefaultMaxSendAttempts = 5

	// BackoffBase is the base for exponential backoff calculation.
	BackoffBase = 1.6

	// BackoffJitter is the scaler for random jitter in backoff calculation.
	BackoffJitter = 0.25

	// BackoffMargin is the margin applied over the base retry interval.
	BackoffMargin = 1.1

	// BackoffThreshold is the number of retransmissions before transitioning
	// from linear to exponential backoff.
	BackoffThreshold = 1

	// DefaultInitialRetryInterval is the base interval while RTT is unknown.
	DefaultInitialRetryInterval = 300 * time.Millisecond

	// DefaultMinRetryInterval bounds the RTT-derived base interval from below.
	DefaultMinRetryInterval = 50 * time.Millisecond

	// DefaultMaxRetryInterval caps every retransmission timeout.
	DefaultMaxRetryInterval = 5 * time.Second
)

// MaxInFlight is the number of reliable sends that may await acknowledgement
// at once. The receiver's duplicate window spans the same distance, so a
// retransmission is never older than the window it is checked against.
const MaxInFlight = 64
