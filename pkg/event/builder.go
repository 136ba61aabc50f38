package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/decisionkit/pkg/datafile"
)

// Reserved event tag keys promoted to first-class payload fields. The tags
// map itself is forwarded untouched.
const (
	revenueTag = "revenue"
	valueTag   = "value"
)

// Builder assembles queue-ready user events from decisions and tracked
// conversions against a datafile snapshot.
type Builder struct{}

// NewBuilder creates an event builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Impression builds the activation event for an experiment decision. The
// decision references the experiment's layer as its campaign.
func (b *Builder) Impression(cfg *datafile.Config, experiment *datafile.Experiment, variation *datafile.Variation, userID string, attributes map[string]any) UserEvent {
	snapshot := Snapshot{
		Decisions: []Decision{{
			CampaignID:   experiment.LayerID,
			ExperimentID: experiment.ID,
			VariationID:  variation.ID,
		}},
		Events: []Event{{
			EntityID:  experiment.LayerID,
			Key:       ImpressionKey,
			Timestamp: time.Now().UnixMilli(),
			UUID:      uuid.NewString(),
		}},
	}
	return b.userEvent(cfg, userID, attributes, snapshot)
}

// Conversion builds a tracked-event occurrence. It fails only when the event
// key is unknown to the datafile.
func (b *Builder) Conversion(cfg *datafile.Config, eventKey, userID string, attributes map[string]any, tags map[string]any) (UserEvent, error) {
	definition, ok := cfg.EventByKey(eventKey)
	if !ok {
		return UserEvent{}, ErrEventKeyNotFound
	}

	e := Event{
		EntityID:  definition.ID,
		Key:       eventKey,
		Timestamp: time.Now().UnixMilli(),
		UUID:      uuid.NewString(),
		Tags:      tags,
	}
	if revenue, ok := revenueFromTags(tags); ok {
		e.Revenue = &revenue
	}
	if value, ok := valueFromTags(tags); ok {
		e.Value = &value
	}

	return b.userEvent(cfg, userID, attributes, Snapshot{Events: []Event{e}}), nil
}

func (b *Builder) userEvent(cfg *datafile.Config, userID string, attributes map[string]any, snapshot Snapshot) UserEvent {
	return UserEvent{
		AccountID:   cfg.AccountID(),
		ProjectID:   cfg.ProjectID(),
		Revision:    cfg.Revision(),
		AnonymizeIP: cfg.AnonymizeIP(),
		Visitor: Visitor{
			ID:         userID,
			Attributes: visitorAttributes(cfg, attributes),
			Snapshots:  []Snapshot{snapshot},
		},
	}
}

// visitorAttributes keeps only attributes the datafile knows about, plus
// reserved-prefix keys which pass through with the key as entity id. When the
// project configures bot filtering, its setting rides along as a reserved
// attribute.
func visitorAttributes(cfg *datafile.Config, attributes map[string]any) []Attribute {
	out := make([]Attribute, 0, len(attributes)+1)
	for key, value := range attributes {
		if value == nil {
			continue
		}
		entityID, ok := cfg.AttributeID(key)
		if !ok {
			continue
		}
		out = append(out, Attribute{
			EntityID: entityID,
			Key:      key,
			Type:     attributeType,
			Value:    value,
		})
	}
	if botFiltering, ok := cfg.BotFiltering(); ok {
		out = append(out, Attribute{
			EntityID: datafile.BotFilteringAttribute,
			Key:      datafile.BotFilteringAttribute,
			Type:     attributeType,
			Value:    botFiltering,
		})
	}
	return out
}

// revenueFromTags extracts an integral revenue amount. Fractional numbers do
// not qualify.
func revenueFromTags(tags map[string]any) (int64, bool) {
	raw, ok := tags[revenueTag]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float32:
		if v == float32(int64(v)) {
			return int64(v), true
		}
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// valueFromTags extracts a numeric event value.
func valueFromTags(tags map[string]any) (float64, bool) {
	raw, ok := tags[valueTag]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
