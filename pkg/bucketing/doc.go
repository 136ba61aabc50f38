// Package bucketing deterministically places users into traffic slices.
//
// A bucket value is computed by hashing the concatenation of a bucketing id
// (usually the user id) and an entity id (an experiment or group id) with
// MurmurHash3 x86_32 under a fixed seed, then scaling the 32-bit hash onto
// [0, 10000). Every client of the experimentation service must reproduce this
// mapping bit for bit so that the same user lands in the same variation
// regardless of which SDK made the call; the hash is chosen for cross-language
// determinism, not security.
//
// Allocate then walks a cumulative traffic-allocation table and returns the
// first entry whose end-of-range boundary exceeds the bucket value. A table
// that sums to less than 10000 deliberately leaves a slice of users without
// any assignment.
//
// Both functions are pure: no I/O, no shared state, safe for concurrent use
// without synchronization.
package bucketing
