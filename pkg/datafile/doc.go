// Package datafile parses the versioned configuration document of the
// experimentation service into an immutable, indexed project configuration.
//
// A datafile describes everything a client needs to decide locally:
// experiments with their traffic allocations and variations, feature flags
// with their rollouts and variable schemas, reusable audiences, mutual
// exclusion groups, and tracked event definitions.
//
// # Immutability
//
// Parse builds a Config once and never mutates it. A datafile update produces
// a whole new Config; callers swap a single shared pointer so that readers in
// flight keep a consistent snapshot. Parsing is strict: a malformed document
// or an unsupported schema version fails wholesale with no partial result, and
// the caller is expected to keep serving its last known good Config.
//
// # Lookups
//
// All lookups are O(1) against indices built at parse time:
//
//	cfg, err := datafile.Parse(raw)
//	if err != nil {
//	    // keep the previous Config
//	}
//
//	exp, ok := cfg.ExperimentByKey("checkout_test")
//	flag, ok := cfg.FeatureByKey("new_checkout")
//	id, ok := cfg.AttributeID("country")
//
// Attribute keys presented at runtime that are absent from the datafile are
// reported as not found; keys carrying the reserved "$opt_" prefix pass
// through with the key itself acting as the entity id.
package datafile
