package types

import (
	"errors"
	"testing"
)

func TestEntityValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entity  Entity
		wantErr error
	}{
		{
			name:   "valid",
			entity: Entity{ID: "e1", Name: "Paris", EntityType: "LOCATION", Confidence: 0.9},
		},
		{
			name:    "empty name",
			entity:  Entity{ID: "e1", EntityType: "LOCATION"},
			wantErr: ErrEmptyName,
		},
		{
			name:    "confidence above one",
			entity:  Entity{ID: "e1", Name: "Paris", Confidence: 1.5},
			wantErr: ErrBadConfidence,
		},
		{
			name:    "negative confidence",
			entity:  Entity{ID: "e1", Name: "Paris", Confidence: -0.1},
			wantErr: ErrBadConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntityValidateForCreate(t *testing.T) {
	t.Parallel()

	e := Entity{Name: "Paris", Confidence: 0.9}
	if err := e.ValidateForCreate(); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

func TestRelationshipValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rel     Relationship
		wantErr error
	}{
		{
			name: "valid",
			rel:  Relationship{ID: "r1", HeadID: "e1", TailID: "e2", RelationType: "located_in", Confidence: 0.9},
		},
		{
			name:    "self loop",
			rel:     Relationship{ID: "r1", HeadID: "e1", TailID: "e1", RelationType: "knows"},
			wantErr: ErrSelfLoop,
		},
		{
			name:    "missing endpoint",
			rel:     Relationship{ID: "r1", HeadID: "e1", RelationType: "knows"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "missing relation type",
			rel:     Relationship{ID: "r1", HeadID: "e1", TailID: "e2"},
			wantErr: ErrEmptyName,
		},
		{
			name:    "bad confidence",
			rel:     Relationship{ID: "r1", HeadID: "e1", TailID: "e2", RelationType: "knows", Confidence: 2},
			wantErr: ErrBadConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rel.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRelationshipOther(t *testing.T) {
	t.Parallel()

	r := Relationship{HeadID: "a", TailID: "b"}

	if other, ok := r.Other("a"); !ok || other != "b" {
		t.Errorf("Other(a) = %q, %v", other, ok)
	}
	if other, ok := r.Other("b"); !ok || other != "a" {
		t.Errorf("Other(b) = %q, %v", other, ok)
	}
	if _, ok := r.Other("c"); ok {
		t.Error("Other(c) should not match")
	}
}

func TestCommunityValidate(t *testing.T) {
	t.Parallel()

	c := Community{ID: "c1", SummaryEmbedding: make([]float32, 12)}
	if err := c.Validate(); !errors.Is(err, ErrBadEmbeddingDim) {
		t.Errorf("expected ErrBadEmbeddingDim, got %v", err)
	}

	c.SummaryEmbedding = make([]float32, SummaryEmbeddingDim)
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	if got := NormalizeName("  Marie Curie "); got != "marie curie" {
		t.Errorf("NormalizeName = %q", got)
	}
}
