package message

import "sync"

// DefaultMaxFree is the default number of idle buffers a Pool retains.
const DefaultMaxFree = 256

// Buffer is a fixed-capacity byte buffer of MaxDatagramSize bytes.
// Buffers are obtained from a Pool and returned with Release.
type Buffer struct {
	data     []byte
	n        int
	pool     *Pool
	released bool
}

// NewBuffer creates a standalone buffer not owned by any pool.
// Release on such a buffer only marks it released.
func NewBuffer() *Buffer {
	return &Buffer{data: newData()}
}

// newData allocates a MaxDatagramSize slice with one spare byte of
// capacity, so a read can tell an oversized datagram from a full one.
func newData() []byte {
	return make([]byte, MaxDatagramSize, MaxDatagramSize+1)
}

// Bytes returns the written contents.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Write appends p. Returns ErrBufferFull without writing if p does not fit.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.n+len(p) > len(b.data) {
		return 0, ErrBufferFull
	}
	n := copy(b.data[b.n:], p)
	b.n += n
	return n, nil
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.n = 0
}

// Raw returns the backing slice for reading datagrams into. It is one byte
// longer than MaxDatagramSize; a read that fills it was truncated.
// Follow with SetLen.
func (b *Buffer) Raw() []byte {
	return b.data[:cap(b.data)]
}

// SetLen sets the number of valid bytes after a direct write into Raw.
func (b *Buffer) SetLen(n int) {
	if n < 0 {
		n = 0
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	b.n = n
}

// Released reports whether the buffer has been returned.
func (b *Buffer) Released() bool {
	return b.released
}

// Release returns the buffer to its pool.
// Releasing twice returns ErrBufferReleased and has no other effect.
func (b *Buffer) Release() error {
	if b.pool != nil {
		return b.pool.Release(b)
	}
	if b.released {
		return ErrBufferReleased
	}
	b.released = true
	return nil
}

// Pool recycles Buffers.
// It is safe for concurrent use: the receive goroutine acquires buffers and
// the tick loop releases them.
type Pool struct {
	mu          sync.Mutex
	free        []*Buffer
	maxFree     int
	outstanding int
}

// NewPool creates a pool that retains up to maxFree idle buffers.
// A maxFree of 0 selects DefaultMaxFree.
func NewPool(maxFree int) *Pool {
	if maxFree <= 0 {
		maxFree = DefaultMaxFree
	}
	return &Pool{
		free:    make([]*Buffer, 0, maxFree),
		maxFree: maxFree,
	}
}

// Acquire returns an empty buffer.
func (p *Pool) Acquire() *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outstanding++

	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		b.n = 0
		b.released = false
		return b
	}

	return &Buffer{data: newData(), pool: p}
}

// Release returns b to the pool.
func (p *Pool) Release(b *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b.released {
		return ErrBufferReleased
	}
	b.released = true
	p.outstanding--

	if len(p.free) < p.maxFree {
		p.free = append(p.free, b)
	}
	return nil
}

// Outstanding returns the number of acquired buffers not yet released.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Idle returns the number of buffers waiting for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
