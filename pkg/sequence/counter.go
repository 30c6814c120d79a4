package sequence

import (
	"crypto/rand"
	"encoding/binary"
)

// Counter allocates outbound sequence numbers for reliable sends.
// Not safe for concurrent use.
type Counter struct {
	next Seq
}

// NewCounter creates a counter starting at a random value.
func NewCounter() *Counter {
	return &Counter{next: randomInit()}
}

// NewCounterWithValue creates a counter whose first Next returns initial.
// Used for testing wraparound.
func NewCounterWithValue(initial Seq) *Counter {
	return &Counter{next: initial}
}

// Next returns the next sequence number and advances the counter.
func (c *Counter) Next() Seq {
	current := c.next
	c.next++
	return current
}

// Peek returns the value the next call to Next will return.
func (c *Counter) Peek() Seq {
	return c.next
}

func randomInit() Seq {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return Seq(binary.LittleEndian.Uint16(buf[:]))
}
