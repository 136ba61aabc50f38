// Package config loads typed configuration structs from environment
// variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: an
// optional .env file is read once per process, then env.Parse populates any
// annotated struct. Each configuration type is parsed at most once and served
// from an in-process cache afterwards, so packages can load their own config
// independently without re-reading the environment.
//
//	type EventConfig struct {
//	    Endpoint  string `env:"EVENT_ENDPOINT,required"`
//	    BatchSize int    `env:"EVENT_BATCH_SIZE" envDefault:"10"`
//	}
//
//	var cfg EventConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// ResetCache clears the cache between tests that mutate the environment.
package config
