package datafile

import (
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/decisionkit/pkg/condition"
)

// Reserved attribute keys. Attributes with the reserved prefix are accepted at
// runtime even when absent from the datafile attribute table.
const (
	ReservedAttributePrefix = "$opt_"
	BucketingIDAttribute    = "$opt_bucketing_id"
	BotFilteringAttribute   = "$opt_bot_filtering"
)

// ExperimentStatus is the lifecycle state of an experiment.
type ExperimentStatus string

const (
	StatusRunning    ExperimentStatus = "Running"
	StatusLaunched   ExperimentStatus = "Launched"
	StatusPaused     ExperimentStatus = "Paused"
	StatusNotStarted ExperimentStatus = "Not started"
	StatusArchived   ExperimentStatus = "Archived"
)

// GroupPolicy controls how a group distributes users across its experiments.
type GroupPolicy string

const (
	// PolicyRandom makes member experiments mutually exclusive: a user is
	// bucketed into at most one of them via the group's traffic allocation.
	PolicyRandom GroupPolicy = "random"
	// PolicyOverlapping lets users qualify for every member experiment.
	PolicyOverlapping GroupPolicy = "overlapping"
)

// TrafficAllocation is one entry of a cumulative traffic split: users whose
// bucket value falls below EndOfRange (and above the previous entry's) map to
// EntityID.
type TrafficAllocation struct {
	EntityID   string `json:"entityId"`
	EndOfRange int    `json:"endOfRange"`
}

// Attribute is a datafile attribute definition mapping a key to its entity id.
type Attribute struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Event is a tracked event definition.
type Event struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	ExperimentIDs []string `json:"experimentIds"`
}

// VariableValue overrides a feature variable inside a specific variation.
type VariableValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Variation is one arm of an experiment.
type Variation struct {
	ID             string          `json:"id"`
	Key            string          `json:"key"`
	FeatureEnabled bool            `json:"featureEnabled"`
	Variables      []VariableValue `json:"variables"`
}

// VariableValueByID returns the variation-level override for a feature
// variable id.
func (v *Variation) VariableValueByID(id string) (string, bool) {
	for i := range v.Variables {
		if v.Variables[i].ID == id {
			return v.Variables[i].Value, true
		}
	}
	return "", false
}

// Experiment is a single traffic-split test, or a rollout targeting rule when
// it appears inside a Rollout.
type Experiment struct {
	ID                 string              `json:"id"`
	Key                string              `json:"key"`
	Status             ExperimentStatus    `json:"status"`
	LayerID            string              `json:"layerId"`
	Variations         []Variation         `json:"variations"`
	TrafficAllocation  []TrafficAllocation `json:"trafficAllocation"`
	AudienceIDs        []string            `json:"audienceIds"`
	AudienceConditions *Conditions         `json:"audienceConditions,omitempty"`
	ForcedVariations   map[string]string   `json:"forcedVariations"`
}

// Running reports whether the experiment accepts new decisions.
func (e *Experiment) Running() bool {
	return e.Status == StatusRunning
}

// VariationByID returns the variation with the given id.
func (e *Experiment) VariationByID(id string) (*Variation, bool) {
	for i := range e.Variations {
		if e.Variations[i].ID == id {
			return &e.Variations[i], true
		}
	}
	return nil, false
}

// VariationByKey returns the variation with the given key.
func (e *Experiment) VariationByKey(key string) (*Variation, bool) {
	for i := range e.Variations {
		if e.Variations[i].Key == key {
			return &e.Variations[i], true
		}
	}
	return nil, false
}

// Group is a set of experiments sharing one traffic-allocation table.
type Group struct {
	ID                string              `json:"id"`
	Policy            GroupPolicy         `json:"policy"`
	TrafficAllocation []TrafficAllocation `json:"trafficAllocation"`
	Experiments       []Experiment        `json:"experiments"`
}

// FeatureVariable is a feature flag variable schema entry with its default.
type FeatureVariable struct {
	ID           string `json:"id"`
	Key          string `json:"key"`
	Type         string `json:"type"`
	DefaultValue string `json:"defaultValue"`
}

// Feature variable types.
const (
	VariableTypeString  = "string"
	VariableTypeBoolean = "boolean"
	VariableTypeDouble  = "double"
	VariableTypeInteger = "integer"
)

// FeatureFlag couples experiments, a rollout, and a variable schema under one
// feature key.
type FeatureFlag struct {
	ID            string            `json:"id"`
	Key           string            `json:"key"`
	RolloutID     string            `json:"rolloutId"`
	ExperimentIDs []string          `json:"experimentIds"`
	Variables     []FeatureVariable `json:"variables"`
}

// VariableByKey returns the variable schema entry with the given key.
func (f *FeatureFlag) VariableByKey(key string) (*FeatureVariable, bool) {
	for i := range f.Variables {
		if f.Variables[i].Key == key {
			return &f.Variables[i], true
		}
	}
	return nil, false
}

// Rollout is an ordered list of audience-gated targeting rules, each a
// single-variation experiment, with the last acting as the "everyone else"
// fallback.
type Rollout struct {
	ID          string       `json:"id"`
	Experiments []Experiment `json:"experiments"`
}

// Audience is a named, reusable targeting rule.
type Audience struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Conditions Conditions `json:"conditions"`
}

// Conditions wraps a parsed condition tree. The datafile serializes condition
// trees either as nested JSON or, in legacy documents, as a JSON string
// containing the same nested document; both decode to the same tree.
type Conditions struct {
	Node condition.Node
	raw  json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	raw := json.RawMessage(data)

	// Legacy stringified conditions: unquote and parse the embedded document.
	var embedded string
	if err := json.Unmarshal(data, &embedded); err == nil {
		raw = json.RawMessage(embedded)
	}

	// An empty condition array is valid and means "no targeting": decisions
	// treat it as an unconditional pass, without falling back to audienceIds.
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil && len(probe) == 0 {
		c.Node = nil
		c.raw = raw
		return nil
	}

	node, err := condition.Parse(raw)
	if err != nil {
		return err
	}
	c.Node = node
	c.raw = raw
	return nil
}

// Empty reports whether the condition document was an empty array.
func (c *Conditions) Empty() bool {
	return c.Node == nil
}

// MarshalJSON implements json.Marshaler, emitting the original nested form.
func (c Conditions) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return nil, errors.New("conditions not initialized from JSON")
	}
	return c.raw, nil
}

// project is the raw decoded document before index construction.
type project struct {
	Version        string        `json:"version"`
	Revision       string        `json:"revision"`
	AccountID      string        `json:"accountId"`
	ProjectID      string        `json:"projectId"`
	AnonymizeIP    bool          `json:"anonymizeIP"`
	BotFiltering   *bool         `json:"botFiltering,omitempty"`
	Attributes     []Attribute   `json:"attributes"`
	Audiences      []Audience    `json:"audiences"`
	TypedAudiences []Audience    `json:"typedAudiences,omitempty"`
	Events         []Event       `json:"events"`
	Experiments    []Experiment  `json:"experiments"`
	Groups         []Group       `json:"groups"`
	FeatureFlags   []FeatureFlag `json:"featureFlags"`
	Rollouts       []Rollout     `json:"rollouts"`
}
