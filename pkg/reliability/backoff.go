package reliability

import (
	"math"
	"math/rand"
	"time"
)

// RandomSource provides random values for jitter calculation.
// Allows injection of deterministic sources for testing.
type RandomSource interface {
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

// defaultRandomSource uses math/rand for production.
type defaultRandomSource struct{}

func (defaultRandomSource) Float64() float64 {
	return rand.Float64()
}

// DefaultRandomSource is the default random source using math/rand.
var DefaultRandomSource RandomSource = defaultRandomSource{}

// Backoff computes retransmission timeouts.
//
// The timeout after the n-th retransmission (n = 0 for the first send) is:
//
//	base * BackoffMargin * BackoffBase^max(0, n-BackoffThreshold)
//	     * (1.0 + random(0,1) * BackoffJitter)
//
// capped at the maximum interval. The base is the initial interval while
// RTT is unknown, otherwise the smoothed RTT clamped to [min, max].
type Backoff struct {
	random  RandomSource
	initial time.Duration
	min     time.Duration
	max     time.Duration
}

// NewBackoff creates a backoff calculator.
// Zero intervals select the package defaults. If random is nil,
// DefaultRandomSource is used.
func NewBackoff(initial, min, max time.Duration, random RandomSource) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialRetryInterval
	}
	if min <= 0 {
		min = DefaultMinRetryInterval
	}
	if max <= 0 {
		max = DefaultMaxRetryInterval
	}
	if random == nil {
		random = DefaultRandomSource
	}
	return &Backoff{random: random, initial: initial, min: min, max: max}
}

// BaseInterval returns the base retry interval for the given smoothed RTT.
// A negative smoothed RTT means unknown.
func (b *Backoff) BaseInterval(smoothed time.Duration) time.Duration {
	if smoothed < 0 {
		return b.initial
	}
	if smoothed < b.min {
		return b.min
	}
	if smoothed > b.max {
		return b.max
	}
	return smoothed
}

// Calculate computes the timeout for a retransmission with jitter.
func (b *Backoff) Calculate(base time.Duration, attempt int) time.Duration {
	return b.calculate(base, attempt, b.random.Float64())
}

// CalculateMin computes the timeout with no jitter.
func (b *Backoff) CalculateMin(base time.Duration, attempt int) time.Duration {
	return b.calculate(base, attempt, 0)
}

// CalculateMax computes the timeout with full jitter.
func (b *Backoff) CalculateMax(base time.Duration, attempt int) time.Duration {
	return b.calculate(base, attempt, 1)
}

func (b *Backoff) calculate(base time.Duration, attempt int, random float64) time.Duration {
	i := float64(base) * BackoffMargin

	exponent := attempt - BackoffThreshold
	if exponent < 0 {
		exponent = 0
	}
	expFactor := math.Pow(BackoffBase, float64(exponent))

	jitterFactor := 1.0 + random*BackoffJitter

	timeout := time.Duration(i * expFactor * jitterFactor)
	if timeout > b.max {
		return b.max
	}
	return timeout
}
