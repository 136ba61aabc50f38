package bucketing

import (
	"github.com/twmb/murmur3"

	"github.com/dmitrymomot/decisionkit/pkg/datafile"
)

// MaxTrafficValue is the exclusive upper bound of the bucket-value space.
const MaxTrafficValue = 10000

// hashSeed is fixed across all clients; changing it would silently rebucket
// every user.
const hashSeed = 1

// Value maps a (bucketingID, entityID) pair onto [0, MaxTrafficValue).
func Value(bucketingID, entityID string) int {
	hash := murmur3.SeedSum32(hashSeed, []byte(bucketingID+entityID))
	ratio := float64(hash) / float64(1<<32)
	return int(ratio * MaxTrafficValue)
}

// Allocate walks the cumulative allocation table in order and returns the
// entity id of the first range whose boundary exceeds value. It returns false
// when the value falls beyond every range, which happens when traffic is not
// fully allocated.
func Allocate(ranges []datafile.TrafficAllocation, value int) (string, bool) {
	for _, r := range ranges {
		if value < r.EndOfRange {
			return r.EntityID, true
		}
	}
	return "", false
}
