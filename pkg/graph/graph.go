// Package graph provides the adjacency view the traversal engine expands
// over. It is a thin, filtered projection of the relationship store; it owns
// no state of its own.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

// Edge is one traversable step away from an entity, already resolved to the
// opposite endpoint.
type Edge struct {
	OtherID        string
	RelationshipID string
	RelationType   string
	Confidence     float64
	// Outgoing reports whether the queried entity is the head of the
	// underlying relationship.
	Outgoing bool
}

// Index answers adjacency queries against a relationship store.
type Index struct {
	rels store.RelationshipStore
}

// NewIndex creates an Index over rels.
func NewIndex(rels store.RelationshipStore) *Index {
	return &Index{rels: rels}
}

// Relationships returns the raw relationships incident to entityID,
// unfiltered.
func (ix *Index) Relationships(ctx context.Context, entityID string) ([]*types.Relationship, error) {
	if entityID == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}
	return ix.rels.RelationshipsFor(ctx, entityID)
}

// Edges returns the edges incident to entityID that survive the direction,
// relation-type and confidence filters, ordered by descending confidence
// with the opposite endpoint id as tie-break. A relation-type filter with an
// empty slice means no filter; minConfidence is inclusive.
func (ix *Index) Edges(ctx context.Context, entityID string, direction types.Direction, relationTypes []string, minConfidence float64) ([]Edge, error) {
	if entityID == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}

	rels, err := ix.rels.RelationshipsFor(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges for %s: %w", entityID, err)
	}

	var typeSet map[string]bool
	if len(relationTypes) > 0 {
		typeSet = make(map[string]bool, len(relationTypes))
		for _, rt := range relationTypes {
			typeSet[rt] = true
		}
	}

	out := make([]Edge, 0, len(rels))
	for _, rel := range rels {
		outgoing := rel.HeadID == entityID
		switch direction {
		case types.DirectionOut:
			if !outgoing {
				continue
			}
		case types.DirectionIn:
			if outgoing {
				continue
			}
		}
		if typeSet != nil && !typeSet[rel.RelationType] {
			continue
		}
		if rel.Confidence < minConfidence {
			continue
		}
		other, ok := rel.Other(entityID)
		if !ok {
			continue
		}
		out = append(out, Edge{
			OtherID:        other,
			RelationshipID: rel.ID,
			RelationType:   rel.RelationType,
			Confidence:     rel.Confidence,
			Outgoing:       outgoing,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].OtherID < out[j].OtherID
	})
	return out, nil
}
