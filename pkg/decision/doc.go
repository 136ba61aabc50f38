// Package decision combines configuration, audience evaluation, and
// deterministic bucketing into experiment and feature decisions.
//
// For an experiment, evaluation short-circuits in a fixed order: experiment
// status, the datafile whitelist for the exact user id, the user-profile
// cache, group mutual exclusion, audience targeting, and finally the hash
// bucketer. The first stage that produces a definite answer wins; a cached
// profile entry in particular is honored without re-evaluating audiences or
// re-hashing, as long as its variation id still exists in the current
// configuration.
//
// For a feature flag, the flag's experiments are tried first in declared
// order, then the rollout's audience-gated targeting rules, ending with the
// "everyone else" fallback rule. A feature matching nothing is simply
// disabled; absence of a decision is an expected outcome, not an error.
//
// The service is safe for concurrent use: all mutable state lives in the
// injected profile store, and profile writes are best-effort. A store
// failure is logged and the decision proceeds uncached.
package decision
