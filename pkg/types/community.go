package types

import "time"

// SummaryEmbeddingDim is the fixed dimension of community summary
// embeddings. The engine never interprets the vector; it only carries it for
// a downstream ranking step.
const SummaryEmbeddingDim = 384

// Community is a detected cluster of densely inter-related entities,
// produced by an external community-detection pass. The engine only reads
// communities.
type Community struct {
	ID               string         `json:"id" mapstructure:"id"`
	Name             string         `json:"name,omitempty" mapstructure:"name"`
	Summary          string         `json:"summary,omitempty" mapstructure:"summary"`
	SummaryEmbedding []float32      `json:"summary_embedding,omitempty" mapstructure:"summary_embedding"`
	Size             int            `json:"size" mapstructure:"size"`
	Density          float64        `json:"density" mapstructure:"density"`
	DocumentID       string         `json:"document_id,omitempty" mapstructure:"document_id"`
	Algorithm        string         `json:"algorithm,omitempty" mapstructure:"algorithm"`
	Metadata         map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	CreatedAt        time.Time      `json:"created_at" mapstructure:"created_at"`
}

// Validate checks the Community invariants enforced at the write path.
func (c *Community) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if len(c.SummaryEmbedding) != 0 && len(c.SummaryEmbedding) != SummaryEmbeddingDim {
		return ErrBadEmbeddingDim
	}
	return nil
}

// CommunityMember links an entity to a community with a membership-strength
// weight in [0,1]. Many-to-many: an entity may belong to zero, one, or
// several communities.
type CommunityMember struct {
	EntityID    string  `json:"entity_id" mapstructure:"entity_id"`
	CommunityID string  `json:"community_id" mapstructure:"community_id"`
	Strength    float64 `json:"membership_strength" mapstructure:"membership_strength"`
}

// Validate checks the membership invariants enforced at the write path.
func (m *CommunityMember) Validate() error {
	if m.EntityID == "" || m.CommunityID == "" {
		return ErrEmptyID
	}
	if m.Strength < 0 || m.Strength > 1 {
		return ErrBadConfidence
	}
	return nil
}
