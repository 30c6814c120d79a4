package reliability

import (
	"time"

	"github.com/backkem/rudp/pkg/sequence"
)

// RetransmitEntry is a reliable message awaiting acknowledgement.
type RetransmitEntry struct {
	// Sequence is the sequence number the message was sent with.
	Sequence sequence.Seq

	// Datagram is the fully encoded datagram, resent verbatim.
	Datagram []byte

	// Attempts is the number of times the datagram has been sent.
	// Starts at 1 for the initial transmission.
	Attempts int

	// MaxAttempts is the attempt limit for this message.
	MaxAttempts int

	// LastSend is when the datagram was last sent.
	LastSend time.Time

	// Deadline is when the entry is due for retransmission or expiry.
	Deadline time.Time

	// release is called once when the entry leaves the table.
	release func()
}

// Exhausted reports whether no further send is allowed.
func (e *RetransmitEntry) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}

// Release runs the entry's release function once.
func (e *RetransmitEntry) Release() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
}

// RetransmitTable holds reliable messages until they are acknowledged or
// exhausted. Deadlines are polled; the table runs no timers.
//
// Not safe for concurrent use. It is owned by the tick loop.
type RetransmitTable struct {
	// entries maps sequence number to pending entry.
	entries map[sequence.Seq]*RetransmitEntry

	// order keeps entries in send order for deterministic polling.
	order []*RetransmitEntry

	capacity int
}

// NewRetransmitTable creates a table holding at most capacity entries.
// A capacity of 0 selects MaxInFlight.
func NewRetransmitTable(capacity int) *RetransmitTable {
	if capacity <= 0 {
		capacity = MaxInFlight
	}
	return &RetransmitTable{
		entries:  make(map[sequence.Seq]*RetransmitEntry),
		capacity: capacity,
	}
}

// Full reports whether another entry can be added.
func (t *RetransmitTable) Full() bool {
	return len(t.order) >= t.capacity
}

// Add registers a message that has just been sent for the first time.
func (t *RetransmitTable) Add(entry *RetransmitEntry) error {
	if t.Full() {
		return ErrSendWindowFull
	}
	if _, exists := t.entries[entry.Sequence]; exists {
		return ErrDuplicateSequence
	}

	t.entries[entry.Sequence] = entry
	t.order = append(t.order, entry)
	return nil
}

// Get returns the entry for a sequence.
func (t *RetransmitTable) Get(seq sequence.Seq) (*RetransmitEntry, bool) {
	entry, ok := t.entries[seq]
	return entry, ok
}

// Ack removes an entry when its acknowledgement arrives.
// Returns the entry if found, nil otherwise. The caller releases it.
func (t *RetransmitTable) Ack(seq sequence.Seq) *RetransmitEntry {
	entry, ok := t.entries[seq]
	if !ok {
		return nil
	}
	t.remove(entry)
	return entry
}

// Due returns the entries whose deadline has passed, in send order.
func (t *RetransmitTable) Due(now time.Time) []*RetransmitEntry {
	var due []*RetransmitEntry
	for _, entry := range t.order {
		if !now.Before(entry.Deadline) {
			due = append(due, entry)
		}
	}
	return due
}

// Remove removes an entry without acknowledgement.
func (t *RetransmitTable) Remove(seq sequence.Seq) {
	if entry, ok := t.entries[seq]; ok {
		t.remove(entry)
	}
}

func (t *RetransmitTable) remove(entry *RetransmitEntry) {
	delete(t.entries, entry.Sequence)
	for i, e := range t.order {
		if e == entry {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of pending entries.
func (t *RetransmitTable) Count() int {
	return len(t.order)
}

// Clear removes all entries, releasing each.
func (t *RetransmitTable) Clear() {
	for _, entry := range t.order {
		entry.Release()
	}
	t.entries = make(map[sequence.Seq]*RetransmitEntry)
	t.order = nil
}
