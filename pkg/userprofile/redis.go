package userprofile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the Redis profile store configuration. Fields can be
// populated from environment variables via github.com/caarlos0/env.
type RedisConfig struct {
	// KeyPrefix namespaces profile keys in the shared Redis keyspace.
	KeyPrefix string `env:"PROFILE_KEY_PREFIX" envDefault:"decisionkit:profile:"`
	// TTL expires stored profiles; zero keeps them forever.
	TTL time.Duration `env:"PROFILE_TTL" envDefault:"0"`
}

// RedisStore persists profiles in Redis so bucketing decisions survive
// restarts and are shared across processes.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithTTL expires stored profiles after d. Zero keeps profiles forever.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewRedisStore creates a profile store over an already connected client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrClientNil
	}

	s := &RedisStore{
		client:    client,
		keyPrefix: "decisionkit:profile:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lookup implements Store.
func (s *RedisStore) Lookup(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrEmptyUserID
	}

	raw, err := s.client.Get(ctx, s.keyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, errors.Join(ErrStoreUnavailable, err)
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt entry is indistinguishable from a missing one for the
		// decision path; the next save overwrites it.
		return Profile{}, ErrProfileNotFound
	}
	return profile, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, profile Profile) error {
	if profile.UserID == "" {
		return ErrEmptyUserID
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	if err := s.client.Set(ctx, s.keyPrefix+profile.UserID, raw, s.ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
