package datafile

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrymomot/decisionkit/pkg/condition"
)

// Schema versions this client understands.
var supportedVersions = []string{"2", "3", "4"}

// Config is an immutable snapshot of one datafile revision with O(1) lookup
// indices. It is safe to share by reference across goroutines; a datafile
// update produces a whole new Config.
type Config struct {
	version      string
	revision     string
	accountID    string
	projectID    string
	anonymizeIP  bool
	botFiltering *bool

	experiments []*Experiment
	features    []*FeatureFlag

	experimentByKey map[string]*Experiment
	experimentByID  map[string]*Experiment
	featureByKey    map[string]*FeatureFlag
	audienceByID    map[string]*Audience
	eventByKey      map[string]*Event
	attributeByKey  map[string]string
	rolloutByID     map[string]*Rollout
	groupByExpID    map[string]*Group
}

// Parse decodes and indexes a datafile. It fails wholesale on malformed
// structure or an unsupported schema version; the caller keeps serving its
// previous Config on error.
func Parse(raw []byte) (*Config, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyDatafile
	}

	var p project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Join(ErrMalformedDatafile, err)
	}

	if !slices.Contains(supportedVersions, p.Version) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, p.Version)
	}

	c := &Config{
		version:      p.Version,
		revision:     p.Revision,
		accountID:    p.AccountID,
		projectID:    p.ProjectID,
		anonymizeIP:  p.AnonymizeIP,
		botFiltering: p.BotFiltering,

		experimentByKey: make(map[string]*Experiment),
		experimentByID:  make(map[string]*Experiment),
		featureByKey:    make(map[string]*FeatureFlag, len(p.FeatureFlags)),
		audienceByID:    make(map[string]*Audience, len(p.Audiences)+len(p.TypedAudiences)),
		eventByKey:      make(map[string]*Event, len(p.Events)),
		attributeByKey:  make(map[string]string, len(p.Attributes)),
		rolloutByID:     make(map[string]*Rollout, len(p.Rollouts)),
		groupByExpID:    make(map[string]*Group),
	}

	// Group experiments are full experiments that only appear inside their
	// group; index them alongside the top-level ones.
	for gi := range p.Groups {
		group := &p.Groups[gi]
		for ei := range group.Experiments {
			exp := &group.Experiments[ei]
			c.indexExperiment(exp)
			c.groupByExpID[exp.ID] = group
		}
	}
	for i := range p.Experiments {
		c.indexExperiment(&p.Experiments[i])
	}

	for i := range p.FeatureFlags {
		flag := &p.FeatureFlags[i]
		c.features = append(c.features, flag)
		c.featureByKey[flag.Key] = flag
	}

	// Typed audiences shadow legacy audiences with the same id.
	for i := range p.Audiences {
		c.audienceByID[p.Audiences[i].ID] = &p.Audiences[i]
	}
	for i := range p.TypedAudiences {
		c.audienceByID[p.TypedAudiences[i].ID] = &p.TypedAudiences[i]
	}

	for i := range p.Events {
		c.eventByKey[p.Events[i].Key] = &p.Events[i]
	}
	for i := range p.Attributes {
		c.attributeByKey[p.Attributes[i].Key] = p.Attributes[i].ID
	}
	for i := range p.Rollouts {
		c.rolloutByID[p.Rollouts[i].ID] = &p.Rollouts[i]
	}

	return c, nil
}

func (c *Config) indexExperiment(exp *Experiment) {
	c.experiments = append(c.experiments, exp)
	c.experimentByKey[exp.Key] = exp
	c.experimentByID[exp.ID] = exp
}

// Version returns the datafile schema version.
func (c *Config) Version() string { return c.version }

// Revision returns the datafile revision.
func (c *Config) Revision() string { return c.revision }

// AccountID returns the owning account id.
func (c *Config) AccountID() string { return c.accountID }

// ProjectID returns the project id.
func (c *Config) ProjectID() string { return c.projectID }

// AnonymizeIP reports whether dispatched events must anonymize the client IP.
func (c *Config) AnonymizeIP() bool { return c.anonymizeIP }

// BotFiltering returns the project bot-filtering setting, when present.
func (c *Config) BotFiltering() (bool, bool) {
	if c.botFiltering == nil {
		return false, false
	}
	return *c.botFiltering, true
}

// Experiments returns all experiments, including group members.
func (c *Config) Experiments() []*Experiment { return c.experiments }

// Features returns all feature flags.
func (c *Config) Features() []*FeatureFlag { return c.features }

// ExperimentByKey looks up an experiment by key.
func (c *Config) ExperimentByKey(key string) (*Experiment, bool) {
	exp, ok := c.experimentByKey[key]
	return exp, ok
}

// ExperimentByID looks up an experiment by id.
func (c *Config) ExperimentByID(id string) (*Experiment, bool) {
	exp, ok := c.experimentByID[id]
	return exp, ok
}

// FeatureByKey looks up a feature flag by key.
func (c *Config) FeatureByKey(key string) (*FeatureFlag, bool) {
	flag, ok := c.featureByKey[key]
	return flag, ok
}

// AudienceByID looks up an audience by id, preferring typed audiences.
func (c *Config) AudienceByID(id string) (*Audience, bool) {
	aud, ok := c.audienceByID[id]
	return aud, ok
}

// EventByKey looks up a tracked event definition by key.
func (c *Config) EventByKey(key string) (*Event, bool) {
	ev, ok := c.eventByKey[key]
	return ev, ok
}

// RolloutByID looks up a rollout by id.
func (c *Config) RolloutByID(id string) (*Rollout, bool) {
	r, ok := c.rolloutByID[id]
	return r, ok
}

// GroupForExperiment returns the group owning the experiment, if any.
func (c *Config) GroupForExperiment(experimentID string) (*Group, bool) {
	g, ok := c.groupByExpID[experimentID]
	return g, ok
}

// AttributeID maps a runtime attribute key to its datafile entity id. Keys
// carrying the reserved prefix pass through as their own entity id even when
// absent from the attribute table.
func (c *Config) AttributeID(key string) (string, bool) {
	if id, ok := c.attributeByKey[key]; ok {
		return id, true
	}
	if len(key) > len(ReservedAttributePrefix) && key[:len(ReservedAttributePrefix)] == ReservedAttributePrefix {
		return key, true
	}
	return "", false
}

// EvaluateAudience implements condition.Resolver for audience-id references
// inside experiment-level condition trees.
func (c *Config) EvaluateAudience(id string, attributes map[string]any) condition.Result {
	aud, ok := c.audienceByID[id]
	if !ok {
		return condition.Unknown
	}
	if aud.Conditions.Empty() {
		return condition.True
	}
	return aud.Conditions.Node.Evaluate(attributes, c)
}
