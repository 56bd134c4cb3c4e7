package types

import "time"

// Relationship is a typed, confidence-scored directed edge between two
// entities. The triple (HeadID, TailID, RelationType) is unique and
// self-loops are rejected; both invariants are enforced by the store layer
// on write, never re-checked by the traversal engine.
type Relationship struct {
	ID           string         `json:"id" mapstructure:"id"`
	HeadID       string         `json:"head_entity_id" mapstructure:"head_entity_id"`
	TailID       string         `json:"tail_entity_id" mapstructure:"tail_entity_id"`
	RelationType string         `json:"relation_type" mapstructure:"relation_type"`
	Confidence   float64        `json:"confidence" mapstructure:"confidence"`
	ChunkID      string         `json:"chunk_id,omitempty" mapstructure:"chunk_id"`
	SourceText   string         `json:"source_text,omitempty" mapstructure:"source_text"`
	Metadata     map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	CreatedAt    time.Time      `json:"created_at" mapstructure:"created_at"`
}

// Validate checks the Relationship invariants enforced at the write path.
func (r *Relationship) Validate() error {
	if r.HeadID == "" || r.TailID == "" {
		return ErrEmptyID
	}
	if r.HeadID == r.TailID {
		return ErrSelfLoop
	}
	if r.RelationType == "" {
		return ErrEmptyName
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrBadConfidence
	}
	return nil
}

// ValidateForCreate additionally requires an identity.
func (r *Relationship) ValidateForCreate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	return r.Validate()
}

// Other returns the endpoint opposite to entityID, and whether entityID is
// actually an endpoint of the relationship.
func (r *Relationship) Other(entityID string) (string, bool) {
	switch entityID {
	case r.HeadID:
		return r.TailID, true
	case r.TailID:
		return r.HeadID, true
	}
	return "", false
}
