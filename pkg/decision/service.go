package decision

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/decisionkit/pkg/bucketing"
	"github.com/dmitrymomot/decisionkit/pkg/condition"
	"github.com/dmitrymomot/decisionkit/pkg/datafile"
	"github.com/dmitrymomot/decisionkit/pkg/logger"
	"github.com/dmitrymomot/decisionkit/pkg/userprofile"
)

// Decision sources reported for feature decisions.
const (
	SourceFeatureTest = "feature-test"
	SourceRollout     = "rollout"
)

// FeatureDecision is the outcome of deciding a feature flag for a user.
type FeatureDecision struct {
	// Experiment is the experiment or rollout rule that produced the
	// decision; nil when the feature matched nothing.
	Experiment *datafile.Experiment
	// Variation is the assigned variation; nil when the feature matched
	// nothing. The feature counts as enabled when Variation.FeatureEnabled
	// is true.
	Variation *datafile.Variation
	// Source is SourceFeatureTest or SourceRollout.
	Source string
}

// Enabled reports whether the decided variation enables the feature.
func (d FeatureDecision) Enabled() bool {
	return d.Variation != nil && d.Variation.FeatureEnabled
}

// Service makes experiment and feature decisions. Construct with NewService;
// the zero value is not usable.
type Service struct {
	profiles userprofile.Store
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProfileStore injects the user-profile cache consulted before
// re-bucketing. Without a store every decision re-buckets.
func WithProfileStore(store userprofile.Store) Option {
	return func(s *Service) {
		s.profiles = store
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a decision service.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Variation decides which variation of the experiment the user sees, or nil
// when the user is not part of the experiment. The decision order is: status,
// whitelist, profile cache, group mutual exclusion, audience targeting, hash
// bucketing.
func (s *Service) Variation(ctx context.Context, cfg *datafile.Config, experiment *datafile.Experiment, userID string, attributes map[string]any) *datafile.Variation {
	if !experiment.Running() {
		s.logger.DebugContext(ctx, "experiment not running",
			logger.Experiment(experiment.Key))
		return nil
	}

	// Whitelisted users bypass audiences, groups, and bucketing entirely. A
	// whitelist entry pointing at a variation that no longer exists is
	// ignored and evaluation continues.
	if variationKey, ok := experiment.ForcedVariations[userID]; ok {
		if variation, ok := experiment.VariationByKey(variationKey); ok {
			s.logger.DebugContext(ctx, "user whitelisted into variation",
				logger.UserID(userID),
				logger.Variation(variationKey))
			return variation
		}
		s.logger.WarnContext(ctx, "whitelisted variation not found, ignoring",
			logger.UserID(userID),
			logger.Variation(variationKey))
	}

	// A valid cached decision is returned without re-evaluating audiences or
	// re-hashing. Stale variation ids are discarded.
	if variation, ok := s.cachedVariation(ctx, experiment, userID); ok {
		return variation
	}

	bucketingID := bucketingIDFor(userID, attributes)

	if !s.passesGroupMutex(ctx, cfg, experiment, bucketingID) {
		return nil
	}

	if !s.MeetsAudienceConditions(ctx, cfg, experiment, attributes) {
		s.logger.DebugContext(ctx, "user not in experiment audience",
			logger.UserID(userID),
			logger.Experiment(experiment.Key))
		return nil
	}

	variation := bucketVariation(experiment, bucketingID)
	if variation == nil {
		s.logger.DebugContext(ctx, "user not bucketed into any variation",
			logger.UserID(userID),
			logger.Experiment(experiment.Key))
		return nil
	}

	s.saveProfile(ctx, userID, experiment.ID, variation.ID)
	return variation
}

// Feature decides a feature flag: flag experiments first in declared order,
// then the rollout rules. A zero-valued FeatureDecision means the feature is
// disabled with no variation.
func (s *Service) Feature(ctx context.Context, cfg *datafile.Config, flag *datafile.FeatureFlag, userID string, attributes map[string]any) FeatureDecision {
	for _, experimentID := range flag.ExperimentIDs {
		experiment, ok := cfg.ExperimentByID(experimentID)
		if !ok {
			continue
		}
		if variation := s.Variation(ctx, cfg, experiment, userID, attributes); variation != nil {
			return FeatureDecision{
				Experiment: experiment,
				Variation:  variation,
				Source:     SourceFeatureTest,
			}
		}
	}

	return s.rolloutDecision(ctx, cfg, flag, userID, attributes)
}

// rolloutDecision walks the rollout's targeting rules: every rule except the
// last is tried in order. An audience match that fails to bucket falls
// straight to the final "everyone else" rule rather than the next rule.
func (s *Service) rolloutDecision(ctx context.Context, cfg *datafile.Config, flag *datafile.FeatureFlag, userID string, attributes map[string]any) FeatureDecision {
	if flag.RolloutID == "" {
		return FeatureDecision{}
	}

	rollout, ok := cfg.RolloutByID(flag.RolloutID)
	if !ok || len(rollout.Experiments) == 0 {
		return FeatureDecision{}
	}

	bucketingID := bucketingIDFor(userID, attributes)
	rules := rollout.Experiments

	for i := range rules[:len(rules)-1] {
		rule := &rules[i]
		if !s.MeetsAudienceConditions(ctx, cfg, rule, attributes) {
			continue
		}
		if variation := bucketVariation(rule, bucketingID); variation != nil {
			return FeatureDecision{Experiment: rule, Variation: variation, Source: SourceRollout}
		}
		break
	}

	fallback := &rules[len(rules)-1]
	if s.MeetsAudienceConditions(ctx, cfg, fallback, attributes) {
		if variation := bucketVariation(fallback, bucketingID); variation != nil {
			return FeatureDecision{Experiment: fallback, Variation: variation, Source: SourceRollout}
		}
	}

	return FeatureDecision{}
}

// MeetsAudienceConditions evaluates the experiment's targeting. An explicit
// condition tree takes precedence; an experiment carrying only audience ids
// matches when any of them does (implicit "or"). Unknown blocks the decision
// just like False.
func (s *Service) MeetsAudienceConditions(ctx context.Context, cfg *datafile.Config, experiment *datafile.Experiment, attributes map[string]any) bool {
	if experiment.AudienceConditions != nil {
		// An empty condition array means no targeting at all, even when
		// legacy audience ids are also present.
		if experiment.AudienceConditions.Empty() {
			return true
		}
		result := experiment.AudienceConditions.Node.Evaluate(attributes, cfg)
		s.logAudienceResult(ctx, experiment, result)
		return result.Matched()
	}

	if len(experiment.AudienceIDs) == 0 {
		return true
	}

	sawUnknown := false
	for _, id := range experiment.AudienceIDs {
		switch cfg.EvaluateAudience(id, attributes) {
		case condition.True:
			s.logAudienceResult(ctx, experiment, condition.True)
			return true
		case condition.Unknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		s.logAudienceResult(ctx, experiment, condition.Unknown)
	} else {
		s.logAudienceResult(ctx, experiment, condition.False)
	}
	return false
}

func (s *Service) logAudienceResult(ctx context.Context, experiment *datafile.Experiment, result condition.Result) {
	s.logger.DebugContext(ctx, "audience evaluation finished",
		logger.Experiment(experiment.Key),
		slog.String("result", result.String()))
}

// passesGroupMutex checks random-group mutual exclusion: the user must be
// bucketed into this exact experiment by the group's own allocation table.
func (s *Service) passesGroupMutex(ctx context.Context, cfg *datafile.Config, experiment *datafile.Experiment, bucketingID string) bool {
	group, ok := cfg.GroupForExperiment(experiment.ID)
	if !ok || group.Policy != datafile.PolicyRandom {
		return true
	}

	value := bucketing.Value(bucketingID, group.ID)
	entityID, ok := bucketing.Allocate(group.TrafficAllocation, value)
	if !ok {
		s.logger.DebugContext(ctx, "user not bucketed into any experiment in group",
			slog.String("group", group.ID))
		return false
	}
	if entityID != experiment.ID {
		s.logger.DebugContext(ctx, "user bucketed into another experiment in group",
			slog.String("group", group.ID),
			logger.Experiment(experiment.Key))
		return false
	}
	return true
}

// cachedVariation returns a still-valid profile-cache decision.
func (s *Service) cachedVariation(ctx context.Context, experiment *datafile.Experiment, userID string) (*datafile.Variation, bool) {
	if s.profiles == nil {
		return nil, false
	}

	profile, err := s.profiles.Lookup(ctx, userID)
	if err != nil {
		if !errors.Is(err, userprofile.ErrProfileNotFound) {
			s.logger.WarnContext(ctx, "profile lookup failed, deciding without cache",
				logger.UserID(userID),
				logger.Error(err))
		}
		return nil, false
	}

	variationID, ok := profile.Variation(experiment.ID)
	if !ok {
		return nil, false
	}

	variation, ok := experiment.VariationByID(variationID)
	if !ok {
		// The cached id belongs to an older datafile revision; re-bucket.
		s.logger.DebugContext(ctx, "cached variation no longer exists, re-bucketing",
			logger.UserID(userID),
			slog.String("variation_id", variationID))
		return nil, false
	}

	s.logger.DebugContext(ctx, "returning cached variation",
		logger.UserID(userID),
		logger.Variation(variation.Key))
	return variation, true
}

// saveProfile records a fresh decision best-effort.
func (s *Service) saveProfile(ctx context.Context, userID, experimentID, variationID string) {
	if s.profiles == nil {
		return
	}

	profile, err := s.profiles.Lookup(ctx, userID)
	if err != nil {
		profile = userprofile.New(userID)
	}
	profile.SetVariation(experimentID, variationID)

	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "profile save failed, decision proceeds uncached",
			logger.UserID(userID),
			logger.Error(err))
	}
}

// bucketVariation buckets by experiment id and resolves the allocated entity
// to a variation.
func bucketVariation(experiment *datafile.Experiment, bucketingID string) *datafile.Variation {
	value := bucketing.Value(bucketingID, experiment.ID)
	variationID, ok := bucketing.Allocate(experiment.TrafficAllocation, value)
	if !ok {
		return nil
	}
	variation, ok := experiment.VariationByID(variationID)
	if !ok {
		return nil
	}
	return variation
}

// bucketingIDFor returns the hash input id: the user id unless a string
// override is supplied via the reserved bucketing-id attribute.
func bucketingIDFor(userID string, attributes map[string]any) string {
	if override, ok := attributes[datafile.BucketingIDAttribute].(string); ok && override != "" {
		return override
	}
	return userID
}
