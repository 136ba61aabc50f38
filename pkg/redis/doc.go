// Package redis connects the shared user-profile store to a Redis server.
//
// It wraps go-redis with a retrying Connect and a health-check helper, so a
// deployment sharing sticky bucketing decisions across processes can bring up
// its Redis dependency with the same env-driven configuration as the rest of
// the client.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	store, err := userprofile.NewRedisStore(client)
//
// Sentinel errors wrap the underlying go-redis errors with errors.Join, so
// callers can compare with errors.Is and still unwrap the cause.
package redis
