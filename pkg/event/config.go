package event

import "time"

// Config holds the event pipeline settings. Fields can be populated from
// environment variables via github.com/caarlos0/env.
type Config struct {
	// Endpoint receives batched event payloads.
	Endpoint string `env:"EVENT_ENDPOINT"`
	// BatchSize triggers a flush when this many events are pending.
	BatchSize int `env:"EVENT_BATCH_SIZE" envDefault:"10"`
	// FlushInterval bounds how long an event waits in a quiet queue.
	FlushInterval time.Duration `env:"EVENT_FLUSH_INTERVAL" envDefault:"60s"`
	// MaxQueueSize drops new events once this many are pending.
	MaxQueueSize int `env:"EVENT_MAX_QUEUE_SIZE" envDefault:"10000"`
	// DispatchTimeout bounds each send attempt.
	DispatchTimeout time.Duration `env:"EVENT_DISPATCH_TIMEOUT" envDefault:"10s"`
	// RetryAttempts re-sends retryable dispatch failures this many times.
	RetryAttempts uint64 `env:"EVENT_RETRY_ATTEMPTS" envDefault:"3"`
	// RetryInterval is the constant delay between retries.
	RetryInterval time.Duration `env:"EVENT_RETRY_INTERVAL" envDefault:"1s"`
	// QueuePath enables the durable queue file; empty keeps events in memory.
	QueuePath string `env:"EVENT_QUEUE_PATH"`
}

// Defaults used when the corresponding Config field or option is unset.
const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 60 * time.Second
	DefaultMaxQueueSize  = 10000
)
