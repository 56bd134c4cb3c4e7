package types

import (
	"strings"
	"time"
)

// Entity is a named, typed node extracted from source text.
type Entity struct {
	ID             string         `json:"id" mapstructure:"id"`
	Name           string         `json:"name" mapstructure:"name"`
	EntityType     string         `json:"entity_type" mapstructure:"entity_type"`
	NormalizedName string         `json:"normalized_name" mapstructure:"normalized_name"`
	DocumentID     string         `json:"document_id,omitempty" mapstructure:"document_id"`
	ChunkID        string         `json:"chunk_id,omitempty" mapstructure:"chunk_id"`
	Confidence     float64        `json:"confidence" mapstructure:"confidence"`
	Metadata       map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	CreatedAt      time.Time      `json:"created_at" mapstructure:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" mapstructure:"updated_at"`
}

// NormalizeName lowercases and trims a display name the way the extraction
// pipeline does, so lookups and dedup agree on the same key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the Entity invariants enforced at the write path.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return ErrEmptyName
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return ErrBadConfidence
	}
	return nil
}

// ValidateForCreate additionally requires an identity.
func (e *Entity) ValidateForCreate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	return e.Validate()
}
