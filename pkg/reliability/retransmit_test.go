package reliability

import (
	"testing"
	"time"

	"github.com/backkem/rudp/pkg/sequence"
)

func newEntry(seq sequence.Seq, deadline time.Time, release func()) *RetransmitEntry {
	return &RetransmitEntry{
		Sequence:    seq,
		Datagram:    []byte{byte(seq)},
		Attempts:    1,
		MaxAttempts: 3,
		Deadline:    deadline,
		release:     release,
	}
}

func TestRetransmitTableAddAndAck(t *testing.T) {
	table := NewRetransmitTable(0)
	now := time.Now()

	if err := table.Add(newEntry(10, now, nil)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := table.Add(newEntry(10, now, nil)); err != ErrDuplicateSequence {
		t.Errorf("duplicate Add() error = %v, want %v", err, ErrDuplicateSequence)
	}

	entry, ok := table.Get(10)
	if !ok || entry.Attempts != 1 {
		t.Fatalf("Get(10) = %v, %v", entry, ok)
	}

	if got := table.Ack(10); got != entry {
		t.Errorf("Ack(10) = %v, want %v", got, entry)
	}
	if got := table.Ack(10); got != nil {
		t.Errorf("second Ack(10) = %v, want nil", got)
	}
	if table.Count() != 0 {
		t.Errorf("Count() = %d, want 0", table.Count())
	}
}

func TestRetransmitTableCapacity(t *testing.T) {
	table := NewRetransmitTable(2)
	now := time.Now()

	table.Add(newEntry(1, now, nil))
	table.Add(newEntry(2, now, nil))

	if !table.Full() {
		t.Error("Full() = false, want true")
	}
	if err := table.Add(newEntry(3, now, nil)); err != ErrSendWindowFull {
		t.Errorf("Add() error = %v, want %v", err, ErrSendWindowFull)
	}
}

func TestRetransmitTableDueInSendOrder(t *testing.T) {
	table := NewRetransmitTable(0)
	now := time.Now()

	table.Add(newEntry(5, now.Add(10*time.Millisecond), nil))
	table.Add(newEntry(3, now.Add(-time.Millisecond), nil))
	table.Add(newEntry(4, now, nil))

	due := table.Due(now)
	if len(due) != 2 {
		t.Fatalf("len(Due) = %d, want 2", len(due))
	}
	if due[0].Sequence != 3 || due[1].Sequence != 4 {
		t.Errorf("Due order = [%d %d], want [3 4]", due[0].Sequence, due[1].Sequence)
	}
}

func TestRetransmitTableClearReleases(t *testing.T) {
	table := NewRetransmitTable(0)
	now := time.Now()

	released := 0
	release := func() { released++ }

	table.Add(newEntry(1, now, release))
	table.Add(newEntry(2, now, release))
	table.Add(newEntry(3, now, nil))

	table.Clear()

	if released != 2 {
		t.Errorf("released = %d, want 2", released)
	}
	if table.Count() != 0 {
		t.Errorf("Count() = %d, want 0", table.Count())
	}
}

func TestRetransmitEntryReleaseOnce(t *testing.T) {
	released := 0
	entry := newEntry(1, time.Now(), func() { released++ })

	entry.Release()
	entry.Release()

	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}
}

func TestAckState(t *testing.T) {
	a := NewAckState()
	start := time.Now()

	a.Mark(start)
	a.Mark(start.Add(50 * time.Millisecond))

	if !a.Pending() {
		t.Fatal("Pending() = false after Mark")
	}
	// Delay runs from the first Mark
	if !a.StandaloneDue(start.Add(100*time.Millisecond), 100*time.Millisecond) {
		t.Error("StandaloneDue() = false, want true")
	}

	a.Piggybacked()
	if a.Pending() || a.StandaloneDue(start.Add(time.Hour), 0) {
		t.Error("ack should be cleared after piggyback")
	}

	a.MarkExplicit(7)
	a.MarkExplicit(7)
	a.MarkExplicit(9)
	if got := a.TakeExplicit(); len(got) != 2 {
		t.Errorf("TakeExplicit() = %v, want two entries", got)
	}
	if got := a.TakeExplicit(); got != nil {
		t.Errorf("second TakeExplicit() = %v, want nil", got)
	}
}
