package event

// Queue is a FIFO buffer of pending events. Entries are removed only after
// the batch containing them is acknowledged, so implementations backed by
// durable storage give at-least-once delivery across restarts.
//
// The processor serializes all access from a single goroutine;
// implementations do not need to be safe for concurrent use but may be.
type Queue interface {
	// Add appends an event at the tail.
	Add(event UserEvent) error
	// First returns up to n events from the head without removing them.
	First(n int) ([]UserEvent, error)
	// Remove drops up to n events from the head.
	Remove(n int) error
	// Size returns the number of pending events.
	Size() (int, error)
	// Close releases the underlying storage. Pending events in durable
	// implementations survive for the next run.
	Close() error
}
