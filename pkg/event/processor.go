package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/decisionkit/pkg/logger"
)

// maxFlushFailures aborts a flush pass after this many consecutive dispatch
// failures; the remaining events stay queued for the next pass.
const maxFlushFailures = 3

// Processor drains the event queue in batches. All queue access happens on
// one internal goroutine; producers hand events over through a channel and
// never contend with the flush loop.
type Processor struct {
	queue      Queue
	dispatcher Dispatcher
	logger     *slog.Logger

	batchSize     int
	flushInterval time.Duration
	maxQueueSize  int

	incoming  chan ingestReq
	flushReqs chan chan error
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	// flushCtx bounds every dispatch; Stop cancels it past its deadline so an
	// in-progress flush is abandoned instead of running on in the background.
	flushCtx    context.Context
	flushCancel context.CancelFunc
}

type ingestReq struct {
	event UserEvent
	ack   chan error
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBatchSize sets how many pending events trigger an immediate flush and
// bounds the visitors per dispatched batch.
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets the periodic flush cadence.
func WithFlushInterval(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithMaxQueueSize caps pending events; events beyond the cap are rejected
// with ErrQueueFull.
func WithMaxQueueSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxQueueSize = n
		}
	}
}

// WithProcessorLogger overrides the default slog logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a processor and starts its flush loop. Call Stop to
// flush remaining events and release the queue.
func NewProcessor(queue Queue, dispatcher Dispatcher, opts ...ProcessorOption) *Processor {
	p := &Processor{
		queue:         queue,
		dispatcher:    dispatcher,
		logger:        slog.Default(),
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		maxQueueSize:  DefaultMaxQueueSize,
		incoming:      make(chan ingestReq),
		flushReqs:     make(chan chan error),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	p.flushCtx, p.flushCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Process queues an event for batched delivery. The event is durably queued
// when Process returns nil. It returns ErrQueueFull when the backlog is at
// capacity and ErrProcessorStopped after Stop.
func (p *Processor) Process(event UserEvent) error {
	req := ingestReq{event: event, ack: make(chan error, 1)}
	select {
	case p.incoming <- req:
	case <-p.done:
		return ErrProcessorStopped
	}

	select {
	case err := <-req.ack:
		return err
	case <-p.done:
		// The loop may have acked just before shutting down.
		select {
		case err := <-req.ack:
			return err
		default:
			return ErrProcessorStopped
		}
	}
}

// Flush synchronously drains the queue and returns the first dispatch error,
// if any.
func (p *Processor) Flush() error {
	ack := make(chan error, 1)
	select {
	case p.flushReqs <- ack:
		return <-ack
	case <-p.done:
		return ErrProcessorStopped
	}
}

// Stop performs a final flush bounded by ctx, then closes the queue. Past the
// ctx deadline the in-progress flush is cancelled and undelivered events stay
// queued. It is safe to call more than once.
func (p *Processor) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.flushCancel()
		<-p.done
		return ctx.Err()
	}
}

func (p *Processor) run() {
	defer close(p.done)
	defer p.flushCancel()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-p.incoming:
			// Ack as soon as the event is durably queued; dispatch must not
			// hold up the producer.
			flushNow, err := p.ingest(req.event)
			req.ack <- err
			if flushNow {
				p.flush()
			}
		case <-ticker.C:
			p.flush()
		case ack := <-p.flushReqs:
			ack <- p.flush()
		case <-p.stop:
			p.flush()
			if err := p.queue.Close(); err != nil {
				p.logger.Warn("event queue close failed", logger.Error(err))
			}
			return
		}
	}
}

// ingest queues the event and reports whether the backlog reached the batch
// size, in which case the loop flushes after acknowledging the producer.
func (p *Processor) ingest(event UserEvent) (bool, error) {
	size, err := p.queue.Size()
	if err != nil {
		return false, err
	}
	if size >= p.maxQueueSize {
		return false, ErrQueueFull
	}
	if err := p.queue.Add(event); err != nil {
		return false, err
	}
	return size+1 >= p.batchSize, nil
}

// flush drains the queue one batch at a time. Events are removed only after
// their batch is acknowledged; the pass aborts after maxFlushFailures
// consecutive dispatch failures, keeping the remainder for the next one.
func (p *Processor) flush() error {
	var firstErr error
	failures := 0

	for {
		events, err := p.queue.First(p.batchSize)
		if err != nil {
			p.logger.Error("event queue read failed", logger.Error(err))
			return err
		}
		if len(events) == 0 {
			return firstErr
		}

		run := contextRun(events)
		batch := batchOf(events[:run])

		if err := p.dispatcher.Dispatch(p.flushCtx, batch); err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			p.logger.Warn("event batch dispatch failed, keeping events queued",
				slog.Int("batch_size", run),
				slog.Int("consecutive_failures", failures),
				logger.Error(err))
			if failures >= maxFlushFailures {
				return firstErr
			}
			continue
		}
		failures = 0

		if err := p.queue.Remove(run); err != nil {
			// The batch was delivered but not trimmed; the next pass re-sends
			// it, which at-least-once delivery allows.
			p.logger.Error("event queue trim failed", logger.Error(err))
			return err
		}
		p.logger.Debug("event batch dispatched", slog.Int("batch_size", run))
	}
}

// contextRun returns the length of the leading run of events sharing a
// project context. Events built under a different datafile revision start a
// new batch.
func contextRun(events []UserEvent) int {
	run := 1
	for run < len(events) && events[run].sameContext(events[0]) {
		run++
	}
	return run
}
