// Package event builds, queues, and dispatches impression and conversion
// events.
//
// Events are produced synchronously by the builder, appended to a durable
// FIFO queue, and delivered in batches by a background processor. A queued
// event is removed only after the dispatcher acknowledges the batch it
// belongs to, giving at-least-once delivery: a crash between a successful
// send and the queue trim re-sends the batch on restart.
//
// The processor owns the queue from a single goroutine. Producers hand events
// over through a channel, so no lock is shared between the hot decision path
// and the flush loop. Flushes happen when the queue reaches the batch size,
// on a fixed interval, on an explicit Flush call, and once more on Stop.
package event
