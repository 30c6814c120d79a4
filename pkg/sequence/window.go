package sequence

import "math/bits"

// WindowSize is the number of sequence numbers behind the latest that the
// inbound window remembers for duplicate detection.
const WindowSize = 64

// AckBitsSize is the number of preceding sequence numbers an acknowledgement
// bitfield can confirm.
const AckBitsSize = 32

// Verdict classifies an inbound sequence number.
type Verdict int

const (
	// VerdictNew means the sequence was not seen before and is now recorded.
	VerdictNew Verdict = iota

	// VerdictDuplicate means the sequence was already received.
	VerdictDuplicate

	// VerdictStale means the sequence is older than the window can vouch for.
	// It may or may not have been received before.
	VerdictStale
)

// String returns a human-readable name for the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictNew:
		return "New"
	case VerdictDuplicate:
		return "Duplicate"
	case VerdictStale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// Window is the inbound sequence window of one connection.
//
// It records the most recent sequence received plus a bitmap of the
// WindowSize sequences preceding it: bit i set means latest-1-i was
// received. The same bitmap, truncated to AckBitsSize, is the
// acknowledgement bitfield sent back to the peer.
//
// Out-of-order arrivals are accepted immediately; the window only
// suppresses duplicates, it never holds messages back.
type Window struct {
	latest      Seq
	bitmap      uint64
	initialized bool
}

// NewWindow creates an empty window that accepts any first sequence.
func NewWindow() *Window {
	return &Window{}
}

// Accept checks s against the window and records it when new.
func (w *Window) Accept(s Seq) Verdict {
	if !w.initialized {
		w.latest = s
		w.bitmap = 0
		w.initialized = true
		return VerdictNew
	}

	diff := Diff(s, w.latest)

	if diff > 0 {
		w.advance(uint(diff))
		w.latest = s
		return VerdictNew
	}

	if diff == 0 {
		return VerdictDuplicate
	}

	behind := uint(-diff)
	if behind > WindowSize {
		return VerdictStale
	}

	mask := uint64(1) << (behind - 1)
	if w.bitmap&mask != 0 {
		return VerdictDuplicate
	}
	w.bitmap |= mask
	return VerdictNew
}

// advance shifts the bitmap for a new latest sequence shift positions ahead
// and marks the old latest as received.
func (w *Window) advance(shift uint) {
	if shift > WindowSize {
		w.bitmap = 0
		return
	}
	w.bitmap = (w.bitmap << shift) | (1 << (shift - 1))
}

// Ack returns the acknowledgement for the current window state: the latest
// sequence and the bitfield of the AckBitsSize sequences before it.
// ok is false when nothing has been received yet.
func (w *Window) Ack() (latest Seq, ackBits uint32, ok bool) {
	if !w.initialized {
		return 0, 0, false
	}
	return w.latest, uint32(w.bitmap), true
}

// AckFor returns an acknowledgement that confirms s.
// When s is representable relative to the latest sequence the full window
// acknowledgement is returned; otherwise a single-sequence acknowledgement
// {s, 0} is returned.
func (w *Window) AckFor(s Seq) (Seq, uint32) {
	if w.initialized {
		if s == w.latest {
			return w.latest, uint32(w.bitmap)
		}
		behind := Diff(w.latest, s)
		if behind > 0 && behind <= AckBitsSize {
			return w.latest, uint32(w.bitmap)
		}
	}
	return s, 0
}

// Latest returns the most recent sequence received.
func (w *Window) Latest() Seq {
	return w.latest
}

// Reset clears the window so the next sequence is accepted as first.
func (w *Window) Reset() {
	w.latest = 0
	w.bitmap = 0
	w.initialized = false
}

// Confirmed expands an acknowledgement into the sequence numbers it confirms,
// newest first.
func Confirmed(ackSeq Seq, ackBits uint32) []Seq {
	seqs := make([]Seq, 0, 1+bits.OnesCount32(ackBits))
	seqs = append(seqs, ackSeq)
	for i := 0; i < AckBitsSize; i++ {
		if ackBits&(1<<uint(i)) != 0 {
			seqs = append(seqs, ackSeq.Sub(i+1))
		}
	}
	return seqs
}
