package event

import "sync"

// MemoryQueue is a non-durable in-process queue. Pending events are lost when
// the process exits; use BoltQueue when delivery must survive restarts.
type MemoryQueue struct {
	mu     sync.Mutex
	events []UserEvent
	closed bool
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Add implements Queue.
func (q *MemoryQueue) Add(event UserEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.events = append(q.events, event)
	return nil
}

// First implements Queue.
func (q *MemoryQueue) First(n int) ([]UserEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	if n > len(q.events) {
		n = len(q.events)
	}
	out := make([]UserEvent, n)
	copy(out, q.events[:n])
	return out, nil
}

// Remove implements Queue.
func (q *MemoryQueue) Remove(n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if n > len(q.events) {
		n = len(q.events)
	}
	q.events = append([]UserEvent(nil), q.events[n:]...)
	return nil
}

// Size implements Queue.
func (q *MemoryQueue) Size() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, ErrQueueClosed
	}
	return len(q.events), nil
}

// Close implements Queue.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.events = nil
	return nil
}
