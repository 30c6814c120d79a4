package transport

import (
	"sync"

	"gopkg.in/eapache/queue.v1"
)

// DefaultQueueSize is the default capacity of an inbound Queue.
const DefaultQueueSize = 256

// Queue is the bounded handoff between the read loop (producer) and the
// tick loop (consumer). It is the only synchronization point between them.
type Queue struct {
	mu       sync.Mutex
	items    *queue.Queue
	capacity int
	dropped  uint64
}

// NewQueue creates a queue holding at most capacity messages.
// A capacity of 0 selects DefaultQueueSize.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{
		items:    queue.New(),
		capacity: capacity,
	}
}

// Push appends msg. Returns false, keeping nothing, if the queue is full;
// the caller still owns msg and must release it.
func (q *Queue) Push(msg *ReceivedMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() >= q.capacity {
		q.dropped++
		return false
	}
	q.items.Add(msg)
	return true
}

// Drain removes and returns every queued message in arrival order.
func (q *Queue) Drain() []*ReceivedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Length()
	if n == 0 {
		return nil
	}

	msgs := make([]*ReceivedMessage, n)
	for i := range msgs {
		msgs[i] = q.items.Remove().(*ReceivedMessage)
	}
	return msgs
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Dropped returns the number of messages rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear releases and removes every queued message.
func (q *Queue) Clear() {
	for _, msg := range q.Drain() {
		msg.Release()
	}
}
