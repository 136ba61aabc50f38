package event

// Client identification reported in every batch payload.
const (
	ClientName    = "go-sdk"
	ClientVersion = "1.0.0"
)

// ImpressionKey is the event key recorded for experiment activations.
const ImpressionKey = "campaign_activated"

// Batch is the wire payload posted to the event endpoint. Field names and
// shapes follow the endpoint's JSON contract exactly.
type Batch struct {
	AccountID       string    `json:"account_id"`
	ProjectID       string    `json:"project_id"`
	Revision        string    `json:"revision"`
	ClientName      string    `json:"client_name"`
	ClientVersion   string    `json:"client_version"`
	AnonymizeIP     bool      `json:"anonymize_ip"`
	EnrichDecisions bool      `json:"enrich_decisions"`
	Visitors        []Visitor `json:"visitors"`
}

// Visitor carries one user's attributes and event snapshots.
type Visitor struct {
	ID         string      `json:"visitor_id"`
	Attributes []Attribute `json:"attributes"`
	Snapshots  []Snapshot  `json:"snapshots"`
}

// Attribute is a single typed visitor attribute.
type Attribute struct {
	EntityID string `json:"entity_id"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Value    any    `json:"value"`
}

// attributeType is the only attribute type the endpoint accepts.
const attributeType = "custom"

// Snapshot groups the decisions that led to an event with the event itself.
type Snapshot struct {
	Decisions []Decision `json:"decisions,omitempty"`
	Events    []Event    `json:"events"`
}

// Decision records which variation of which experiment produced an
// impression.
type Decision struct {
	CampaignID   string `json:"campaign_id"`
	ExperimentID string `json:"experiment_id"`
	VariationID  string `json:"variation_id"`
}

// Event is a single impression or conversion occurrence.
type Event struct {
	EntityID  string         `json:"entity_id"`
	Key       string         `json:"key"`
	Timestamp int64          `json:"timestamp"`
	UUID      string         `json:"uuid"`
	Tags      map[string]any `json:"tags,omitempty"`
	Revenue   *int64         `json:"revenue,omitempty"`
	Value     *float64       `json:"value,omitempty"`
}

// UserEvent is the unit stored in the queue: one visitor snapshot plus the
// project context it was built under. Events created under different datafile
// revisions never share a batch.
type UserEvent struct {
	AccountID   string  `json:"account_id"`
	ProjectID   string  `json:"project_id"`
	Revision    string  `json:"revision"`
	AnonymizeIP bool    `json:"anonymize_ip"`
	Visitor     Visitor `json:"visitor"`
}

// sameContext reports whether two queued events can share a batch.
func (e UserEvent) sameContext(other UserEvent) bool {
	return e.AccountID == other.AccountID &&
		e.ProjectID == other.ProjectID &&
		e.Revision == other.Revision &&
		e.AnonymizeIP == other.AnonymizeIP
}

// batchOf assembles the wire payload for a run of context-compatible events.
func batchOf(events []UserEvent) Batch {
	head := events[0]
	visitors := make([]Visitor, 0, len(events))
	for _, e := range events {
		visitors = append(visitors, e.Visitor)
	}
	return Batch{
		AccountID:       head.AccountID,
		ProjectID:       head.ProjectID,
		Revision:        head.Revision,
		ClientName:      ClientName,
		ClientVersion:   ClientVersion,
		AnonymizeIP:     head.AnonymizeIP,
		EnrichDecisions: true,
		Visitors:        visitors,
	}
}
