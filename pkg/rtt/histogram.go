package rtt

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/eapache/queue.v1"
)

// Stats summarizes the samples in a Histogram.
type Stats struct {
	Samples int
	Mean    time.Duration
	StdDev  time.Duration
	Min     time.Duration
}

// Histogram keeps a sliding window of the most recent RTT samples.
type Histogram struct {
	windowSize int
	data       *queue.Queue
}

// NewHistogram creates a histogram holding at most size samples.
func NewHistogram(size int) *Histogram {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Histogram{
		windowSize: size,
		data:       queue.New(),
	}
}

// Add records a sample, evicting the oldest when the window is full.
func (h *Histogram) Add(d time.Duration) {
	if h.data.Length() >= h.windowSize {
		h.data.Remove()
	}
	h.data.Add(float64(d))
}

// Len returns the number of samples held.
func (h *Histogram) Len() int {
	return h.data.Length()
}

// Clear drops all samples.
func (h *Histogram) Clear() {
	h.data = queue.New()
}

// Stats computes mean, standard deviation and minimum of the window.
// With no samples every value is Unknown. With one sample StdDev is 0.
func (h *Histogram) Stats() Stats {
	values := h.values()
	if len(values) == 0 {
		return Stats{Mean: Unknown, StdDev: Unknown, Min: Unknown}
	}

	s := Stats{
		Samples: len(values),
		Mean:    duration(stat.Mean(values, nil)),
	}

	if len(values) > 1 {
		s.StdDev = duration(stat.StdDev(values, nil))
	}

	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	s.Min = duration(min)

	return s
}

func (h *Histogram) values() []float64 {
	values := make([]float64, h.data.Length())
	for i := range values {
		values[i] = h.data.Get(i).(float64)
	}
	return values
}

func duration(v float64) time.Duration {
	return time.Duration(math.Round(v))
}
