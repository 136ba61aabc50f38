package decisionkit

import (
	"log/slog"

	"github.com/dmitrymomot/decisionkit/pkg/event"
	"github.com/dmitrymomot/decisionkit/pkg/userprofile"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger       *slog.Logger
	profileStore userprofile.Store
	dispatcher   event.Dispatcher
	queue        event.Queue
	eventConfig  event.Config
}

// WithLogger overrides the default slog logger used across the client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProfileStore pins bucketing decisions in the given store so users keep
// their variation across datafile traffic changes.
func WithProfileStore(store userprofile.Store) Option {
	return func(o *clientOptions) {
		o.profileStore = store
	}
}

// WithEventDispatcher replaces the HTTP dispatcher built from the event
// configuration.
func WithEventDispatcher(dispatcher event.Dispatcher) Option {
	return func(o *clientOptions) {
		o.dispatcher = dispatcher
	}
}

// WithEventQueue replaces the default in-memory pending-event queue, e.g.
// with a durable one.
func WithEventQueue(queue event.Queue) Option {
	return func(o *clientOptions) {
		o.queue = queue
	}
}

// WithEventConfig applies pipeline settings (endpoint, batch size, flush
// interval, queue bounds). Zero fields keep their defaults.
func WithEventConfig(cfg event.Config) Option {
	return func(o *clientOptions) {
		o.eventConfig = cfg
	}
}
