package userprofile

import "context"

// Decision records the variation a user was assigned in one experiment.
type Decision struct {
	VariationID string `json:"variation_id"`
}

// Profile maps experiment ids to prior decisions for one user.
type Profile struct {
	UserID              string              `json:"user_id"`
	ExperimentBucketMap map[string]Decision `json:"experiment_bucket_map"`
}

// New creates an empty profile for the user.
func New(userID string) Profile {
	return Profile{
		UserID:              userID,
		ExperimentBucketMap: make(map[string]Decision),
	}
}

// Variation returns the cached variation id for an experiment.
func (p Profile) Variation(experimentID string) (string, bool) {
	d, ok := p.ExperimentBucketMap[experimentID]
	if !ok || d.VariationID == "" {
		return "", false
	}
	return d.VariationID, true
}

// SetVariation records a decision, replacing any previous one for the
// experiment.
func (p *Profile) SetVariation(experimentID, variationID string) {
	if p.ExperimentBucketMap == nil {
		p.ExperimentBucketMap = make(map[string]Decision)
	}
	p.ExperimentBucketMap[experimentID] = Decision{VariationID: variationID}
}

// Store is the external key-value collaborator holding user profiles. The
// decision engine treats it as untyped storage and validates returned
// variation ids against the live configuration itself.
type Store interface {
	// Lookup returns the stored profile for the user, or ErrProfileNotFound.
	Lookup(ctx context.Context, userID string) (Profile, error)

	// Save stores the whole profile, replacing any previous one. Racing
	// saves for the same user resolve as last write wins.
	Save(ctx context.Context, profile Profile) error
}
