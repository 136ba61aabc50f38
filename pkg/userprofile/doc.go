// Package userprofile defines the user-profile store contract and two
// implementations: a bounded in-memory store and a Redis-backed store.
//
// A profile is a read-through cache of prior bucketing decisions: a map from
// experiment id to the variation id the user was assigned. The decision
// service consults it before re-bucketing so that a user keeps their
// variation even when the experiment's traffic allocation changes, and writes
// fresh decisions back best-effort; a failed save never fails the decision.
//
// Cached variation ids are validated against the live project configuration
// by the decision service, never by the store: the store is untyped storage
// and may hold ids from older datafile revisions.
//
// Concurrent decisions for the same (user, experiment) pair may race; the
// accepted behavior is last write wins. This is a documented relaxation, not
// a linearizable guarantee.
//
// # Usage
//
//	store := userprofile.NewMemoryStore()
//
//	profile, err := store.Lookup(ctx, "user-1")
//	if errors.Is(err, userprofile.ErrProfileNotFound) {
//	    profile = userprofile.New("user-1")
//	}
//	profile.SetVariation("exp-1", "var-a")
//	_ = store.Save(ctx, profile)
//
// The Redis store accepts an already connected *redis.Client; see
// pkg/redis for env-driven connection bootstrap:
//
//	store, err := userprofile.NewRedisStore(client,
//	    userprofile.WithKeyPrefix("myapp:profiles:"),
//	    userprofile.WithTTL(30*24*time.Hour),
//	)
package userprofile
