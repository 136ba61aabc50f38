package redis

import "time"

// Config holds the Redis connection settings. Fields can be populated from
// environment variables via github.com/caarlos0/env.
type Config struct {
	// ConnectionURL is the server URL, e.g. "redis://:password@localhost:6379/0".
	ConnectionURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	// RetryAttempts is how many times Connect re-pings before giving up.
	RetryAttempts uint64 `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	// RetryInterval is the delay between connection attempts.
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	// ConnectTimeout bounds the whole connection phase.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
