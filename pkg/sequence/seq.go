// Package sequence implements sequence numbering for reliable messages.
//
// Sequence numbers are 16 bits wide and wrap. All ordering decisions use
// modular arithmetic: a sequence is "ahead" of another when the forward
// distance between them is less than half the sequence space. Raw numeric
// comparison is never used, so behaviour is identical on either side of
// the 65535 -> 0 boundary.
//
// The package provides:
//   - Seq: the wire sequence type and wrap-aware comparisons
//   - Counter: the outbound sequence allocator
//   - Window: inbound duplicate detection and acknowledgement bitfields
package sequence

// Seq is a 16-bit wrapping sequence number.
type Seq uint16

// HalfRange is half of the sequence space. Forward distances strictly
// below HalfRange count as "ahead".
const HalfRange = 1 << 15

// Next returns the sequence number following s, wrapping at 65535.
func (s Seq) Next() Seq {
	return s + 1
}

// Diff returns the signed wrap-aware distance from b to a.
// Positive means a is ahead of b.
func Diff(a, b Seq) int {
	return int(int16(a - b))
}

// After reports whether s is ahead of other.
func (s Seq) After(other Seq) bool {
	return Diff(s, other) > 0
}

// Before reports whether s is behind other.
func (s Seq) Before(other Seq) bool {
	return Diff(s, other) < 0
}

// Sub returns s moved back by n positions, wrapping.
func (s Seq) Sub(n int) Seq {
	return s - Seq(n)
}
