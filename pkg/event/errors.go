package event

import "errors"

var (
	// ErrEventKeyNotFound is returned when a conversion references an event
	// key absent from the current datafile.
	ErrEventKeyNotFound = errors.New("event key not found in datafile")
	// ErrQueueFull is returned when the pending-event queue is at capacity;
	// the event is dropped rather than blocking the caller.
	ErrQueueFull = errors.New("event queue is full")
	// ErrProcessorStopped is returned when an event arrives after Stop.
	ErrProcessorStopped = errors.New("event processor is stopped")
	// ErrDispatchFailed wraps transport and non-2xx responses from the event
	// endpoint.
	ErrDispatchFailed = errors.New("event dispatch failed")
	// ErrQueueClosed is returned by queue operations after Close.
	ErrQueueClosed = errors.New("event queue is closed")
)
