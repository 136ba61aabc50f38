package userprofile

import (
	"context"

	"github.com/dmitrymomot/decisionkit/pkg/cache"
)

// DefaultMemoryCapacity bounds the in-memory store when no capacity option is
// given.
const DefaultMemoryCapacity = 10000

// MemoryStore is a bounded in-process profile store backed by an LRU cache.
// Suitable for single-process deployments and tests; profiles do not survive
// a restart.
type MemoryStore struct {
	profiles *cache.LRU[string, Profile]
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	capacity int
}

// WithCapacity bounds the number of profiles kept in memory.
func WithCapacity(n int) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// NewMemoryStore creates an in-memory profile store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	options := &memoryOptions{capacity: DefaultMemoryCapacity}
	for _, opt := range opts {
		opt(options)
	}
	return &MemoryStore{
		profiles: cache.NewLRU[string, Profile](options.capacity),
	}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrEmptyUserID
	}
	profile, ok := s.profiles.Get(userID)
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return clone(profile), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, profile Profile) error {
	if profile.UserID == "" {
		return ErrEmptyUserID
	}
	s.profiles.Put(profile.UserID, clone(profile))
	return nil
}

// clone copies the bucket map so callers cannot mutate stored state.
func clone(p Profile) Profile {
	bucketMap := make(map[string]Decision, len(p.ExperimentBucketMap))
	for k, v := range p.ExperimentBucketMap {
		bucketMap[k] = v
	}
	p.ExperimentBucketMap = bucketMap
	return p
}
