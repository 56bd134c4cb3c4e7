package verkko

import (
	"context"

	"github.com/verkkograph/verkko/pkg/traversal"
	"github.com/verkkograph/verkko/pkg/types"
)

// This file defines focused interfaces following the Interface Segregation
// Principle. Consumers should depend on the smallest interface that meets
// their needs; Verkko composes them all.

// Traverser provides the bounded graph traversal operations.
type Traverser interface {
	// Neighbors expands breadth-first from a seed entity and reports each
	// reachable entity once, at its minimal depth.
	Neighbors(ctx context.Context, seedID string, opts traversal.Options) ([]types.NeighborResult, error)

	// ShortestPath finds a minimal-hop path between two entities. An
	// unreachable target is a Found=false result, not an error.
	ShortestPath(ctx context.Context, startID, endID string, opts traversal.Options) (*types.PathResult, error)

	// Subgraph returns the relationships fully contained in the closure of
	// the seed set within the depth bound.
	Subgraph(ctx context.Context, seedIDs []string, opts traversal.Options) ([]*types.Relationship, error)
}

// Matcher provides fuzzy entity lookup by display name.
type Matcher interface {
	// FindByName scores entities against a query and returns qualifying
	// hits ordered by similarity, then degree.
	FindByName(ctx context.Context, query string, threshold float64, limit int) ([]types.MatchResult, error)
}

// StatsComputer computes and reads cached graph statistics.
type StatsComputer interface {
	// ComputeStatistics derives the basic metrics for a scope and caches
	// them atomically under (scope, "basic_stats").
	ComputeStatistics(ctx context.Context, scope string) (*types.BasicStats, error)

	// GetStatistics reads the cached row for a scope.
	GetStatistics(ctx context.Context, scope string) (*types.GraphStatistic, error)

	// ExtendedStatistics computes the live per-type breakdown view.
	ExtendedStatistics(ctx context.Context, scope string) (*types.ExtendedStats, error)
}

// ContextAssembler builds community context bundles.
type ContextAssembler interface {
	// CommunityContext returns one bundle per community with a member in
	// the entity set, optionally widening the set by one hop first.
	CommunityContext(ctx context.Context, entityIDs []string, includeNeighbors bool) ([]types.CommunityContext, error)
}

// GraphReader provides direct lookups against the stores.
type GraphReader interface {
	// GetEntity retrieves one entity by id.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// GetRelationship retrieves one relationship by id.
	GetRelationship(ctx context.Context, id string) (*types.Relationship, error)

	// GetCommunity retrieves one community by id.
	GetCommunity(ctx context.Context, id string) (*types.Community, error)

	// DocumentGraph returns a document's entities plus every relationship
	// touching one of them.
	DocumentGraph(ctx context.Context, documentID string) (*types.DocumentGraph, error)

	// EntitiesByType lists all entities of one type.
	EntitiesByType(ctx context.Context, entityType string) ([]*types.Entity, error)

	// RelationshipsByType lists all relationships of one relation type.
	RelationshipsByType(ctx context.Context, relationType string) ([]*types.Relationship, error)
}

// Verkko is the full engine surface, composed from the focused interfaces.
type Verkko interface {
	Traverser
	Matcher
	StatsComputer
	ContextAssembler
	GraphReader

	// Close releases the underlying store.
	Close() error
}

var _ Verkko = (*Engine)(nil)
