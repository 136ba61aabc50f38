package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/decisionkit/pkg/event"
)

// captureDispatcher records batches and can be flipped between failing and
// succeeding mid-test.
type captureDispatcher struct {
	mu      sync.Mutex
	batches []event.Batch
	err     error
}

func (d *captureDispatcher) Dispatch(_ context.Context, batch event.Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.batches = append(d.batches, batch)
	return nil
}

func (d *captureDispatcher) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *captureDispatcher) dispatched() []event.Batch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]event.Batch(nil), d.batches...)
}

// stallDispatcher blocks Dispatch until released or its context ends.
type stallDispatcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallDispatcher() *stallDispatcher {
	return &stallDispatcher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (d *stallDispatcher) Dispatch(ctx context.Context, _ event.Batch) error {
	select {
	case d.entered <- struct{}{}:
	default:
	}
	select {
	case <-d.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *stallDispatcher) unblock() {
	d.once.Do(func() { close(d.release) })
}

func TestProcessorBatchSizeFlush(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithBatchSize(2),
		event.WithFlushInterval(time.Hour))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.NoError(t, p.Process(userEvent("u1")))
	require.NoError(t, p.Process(userEvent("u2")))

	require.Eventually(t, func() bool {
		return len(dispatcher.dispatched()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	batch := dispatcher.dispatched()[0]
	assert.Equal(t, "acc-1", batch.AccountID)
	assert.Equal(t, "go-sdk", batch.ClientName)
	assert.True(t, batch.EnrichDecisions)
	require.Len(t, batch.Visitors, 2)
	assert.Equal(t, "u1", batch.Visitors[0].ID)
	assert.Equal(t, "u2", batch.Visitors[1].ID)
}

func TestProcessorProcessDoesNotWaitForDispatch(t *testing.T) {
	dispatcher := newStallDispatcher()
	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithBatchSize(1),
		event.WithFlushInterval(time.Hour))
	t.Cleanup(func() {
		dispatcher.unblock()
		_ = p.Stop(context.Background())
	})

	// Crossing the batch-size threshold triggers a flush, but the producer is
	// acknowledged as soon as the event is queued.
	start := time.Now()
	require.NoError(t, p.Process(userEvent("u1")))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case <-dispatcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("batch-size flush never started")
	}
}

func TestProcessorFlush(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithFlushInterval(time.Hour))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.NoError(t, p.Process(userEvent("u1")))
	require.NoError(t, p.Flush())

	batches := dispatcher.dispatched()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Visitors, 1)
	assert.Equal(t, "u1", batches[0].Visitors[0].ID)
}

func TestProcessorKeepsEventsOnDispatchFailure(t *testing.T) {
	queue := event.NewMemoryQueue()
	dispatcher := &captureDispatcher{}
	dispatcher.setErr(assert.AnError)

	p := event.NewProcessor(queue, dispatcher, event.WithFlushInterval(time.Hour))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.NoError(t, p.Process(userEvent("u1")))
	require.NoError(t, p.Process(userEvent("u2")))
	assert.Error(t, p.Flush())

	// Unacknowledged events stay queued.
	size, err := queue.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	// Once the endpoint recovers the backlog drains in order.
	dispatcher.setErr(nil)
	require.NoError(t, p.Flush())

	size, err = queue.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	batches := dispatcher.dispatched()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Visitors, 2)
	assert.Equal(t, "u1", batches[0].Visitors[0].ID)
}

func TestProcessorSplitsBatchesByRevision(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithFlushInterval(time.Hour))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	first := userEvent("u1")
	second := userEvent("u2")
	second.Revision = "2"

	require.NoError(t, p.Process(first))
	require.NoError(t, p.Process(second))
	require.NoError(t, p.Flush())

	batches := dispatcher.dispatched()
	require.Len(t, batches, 2)
	assert.Equal(t, "1", batches[0].Revision)
	assert.Equal(t, "2", batches[1].Revision)
}

func TestProcessorQueueFull(t *testing.T) {
	dispatcher := &captureDispatcher{}
	dispatcher.setErr(assert.AnError)

	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithFlushInterval(time.Hour),
		event.WithMaxQueueSize(1))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.NoError(t, p.Process(userEvent("u1")))
	assert.Error(t, p.Flush())

	assert.ErrorIs(t, p.Process(userEvent("u2")), event.ErrQueueFull)
}

func TestProcessorStop(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithFlushInterval(time.Hour))

	require.NoError(t, p.Process(userEvent("u1")))
	require.NoError(t, p.Stop(context.Background()))

	// Stop flushes whatever was pending.
	batches := dispatcher.dispatched()
	require.Len(t, batches, 1)
	assert.Equal(t, "u1", batches[0].Visitors[0].ID)

	assert.ErrorIs(t, p.Process(userEvent("u2")), event.ErrProcessorStopped)
	assert.ErrorIs(t, p.Flush(), event.ErrProcessorStopped)

	// Stop is idempotent.
	assert.NoError(t, p.Stop(context.Background()))
}

func TestProcessorStopDeadlineAbandonsFlush(t *testing.T) {
	dispatcher := newStallDispatcher()
	p := event.NewProcessor(event.NewMemoryQueue(), dispatcher,
		event.WithFlushInterval(time.Hour))
	t.Cleanup(dispatcher.unblock)

	require.NoError(t, p.Process(userEvent("u1")))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The final flush stalls on the dispatcher; past the deadline Stop cancels
	// it instead of letting it run on in the background.
	start := time.Now()
	assert.ErrorIs(t, p.Stop(ctx), context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, p.Process(userEvent("u2")), event.ErrProcessorStopped)
}
