// Package rtt estimates round-trip time from acknowledgement samples.
//
// The Estimator keeps the latest raw sample and an exponentially weighted
// moving average of all samples (alpha = 1/8). Until the first sample both
// report Unknown. A Histogram over the most recent samples provides jitter
// statistics.
package rtt

import "time"

// Unknown is reported for RTT values before the first sample.
const Unknown = time.Duration(-1)

// MaxRTT is the largest RTT value retained. Larger samples are clamped.
const MaxRTT = 32767 * time.Millisecond

// DefaultHistorySize is the default number of samples kept for statistics.
const DefaultHistorySize = 32

// Smoothing factor as a fraction: alpha = alphaNum/alphaDen.
const (
	alphaNum = 1
	alphaDen = 8
)

// Estimator converts RTT samples into raw and smoothed RTT values.
// It is not safe for concurrent use.
type Estimator struct {
	latest   time.Duration
	smoothed time.Duration
	known    bool
	history  *Histogram
}

// NewEstimator creates an estimator that keeps historySize samples for
// statistics. A historySize of 0 selects DefaultHistorySize.
func NewEstimator(historySize int) *Estimator {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Estimator{
		latest:   Unknown,
		smoothed: Unknown,
		history:  NewHistogram(historySize),
	}
}

// Sample feeds one round-trip measurement.
// Negative samples are discarded and Sample returns false.
func (e *Estimator) Sample(d time.Duration) bool {
	if d < 0 {
		return false
	}
	if d > MaxRTT {
		d = MaxRTT
	}

	e.latest = d
	if !e.known {
		e.smoothed = d
		e.known = true
	} else {
		e.smoothed += (d - e.smoothed) * alphaNum / alphaDen
	}

	e.history.Add(d)
	return true
}

// RTT returns the latest sample, or Unknown.
func (e *Estimator) RTT() time.Duration {
	return e.latest
}

// Smoothed returns the smoothed RTT, or Unknown.
func (e *Estimator) Smoothed() time.Duration {
	return e.smoothed
}

// Known reports whether at least one sample has been applied.
func (e *Estimator) Known() bool {
	return e.known
}

// Stats returns statistics over the recent samples.
func (e *Estimator) Stats() Stats {
	return e.history.Stats()
}

// Reset returns the estimator to the Unknown state and clears history.
func (e *Estimator) Reset() {
	e.latest = Unknown
	e.smoothed = Unknown
	e.known = false
	e.history.Clear()
}
