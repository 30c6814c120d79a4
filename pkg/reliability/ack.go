package reliability

import (
	"time"

	"github.com/backkem/rudp/pkg/sequence"
)

// AckState tracks the acknowledgement owed to the peer.
//
// A received sequenced message makes an ack pending. The ack is cleared
// when it rides on an outgoing datagram (piggybacked) or when a standalone
// ack is sent after the standalone delay. Duplicates that fall outside the
// ack bitfield are acknowledged individually via explicit acks.
type AckState struct {
	pending  bool
	since    time.Time
	explicit []sequence.Seq
}

// NewAckState creates an empty ack state.
func NewAckState() *AckState {
	return &AckState{}
}

// Mark records that an ack covering the receive window is owed.
// The standalone delay runs from the first unacknowledged receipt.
func (a *AckState) Mark(now time.Time) {
	if !a.pending {
		a.pending = true
		a.since = now
	}
}

// MarkExplicit queues a single-sequence ack for seq.
func (a *AckState) MarkExplicit(seq sequence.Seq) {
	for _, s := range a.explicit {
		if s == seq {
			return
		}
	}
	a.explicit = append(a.explicit, seq)
}

// Pending reports whether a window ack is owed.
func (a *AckState) Pending() bool {
	return a.pending
}

// Piggybacked records that the window ack rode on an outgoing datagram.
func (a *AckState) Piggybacked() {
	a.pending = false
}

// StandaloneDue reports whether a standalone window ack should be sent now.
func (a *AckState) StandaloneDue(now time.Time, delay time.Duration) bool {
	return a.pending && now.Sub(a.since) >= delay
}

// StandaloneSent records that a standalone window ack was sent.
func (a *AckState) StandaloneSent() {
	a.pending = false
}

// TakeExplicit returns and clears the queued explicit acks.
func (a *AckState) TakeExplicit() []sequence.Seq {
	explicit := a.explicit
	a.explicit = nil
	return explicit
}

// Clear drops all owed acks.
func (a *AckState) Clear() {
	a.pending = false
	a.explicit = nil
}
