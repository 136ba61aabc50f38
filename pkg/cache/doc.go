// Package cache provides a generic, thread-safe LRU cache used to bound
// in-memory state such as the user-profile store.
//
// The cache evicts the least recently used entry once it reaches its
// configured capacity, keeping memory growth bounded under arbitrary key
// churn. Get, Put, and Remove are O(1).
//
// # Usage
//
//	c := cache.NewLRU[string, Profile](1000)
//
//	c.Put("user-1", profile)
//	if p, ok := c.Get("user-1"); ok {
//	    // p is marked most recently used
//	}
//
// All operations are safe for concurrent use.
package cache
