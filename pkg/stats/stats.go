// Package stats computes aggregate graph metrics and maintains the cached
// statistics row. Compute derives everything from entity and relationship
// data and persists the result with one atomic upsert per (scope, name) key;
// the cached row is never treated as a source of truth.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

// mostConnectedLimit caps the most-connected listing in extended stats.
const mostConnectedLimit = 10

// Cache computes and persists graph statistics.
type Cache struct {
	entities store.EntityStore
	rels     store.RelationshipStore
	stats    store.StatStore
}

// NewCache creates a statistics cache over the given stores.
func NewCache(entities store.EntityStore, rels store.RelationshipStore, stats store.StatStore) *Cache {
	return &Cache{entities: entities, rels: rels, stats: stats}
}

// Compute derives the basic metrics for scope (empty scope means the whole
// graph), upserts them under (scope, "basic_stats") and returns the computed
// value. It is idempotent: rerunning on unchanged data writes an identical
// value with a fresh timestamp.
func (c *Cache) Compute(ctx context.Context, scope string) (*types.BasicStats, error) {
	entityCount, err := c.entities.CountEntities(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	relCount, err := c.rels.CountRelationships(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	degrees, err := c.rels.DegreeCounts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load degrees: %w", err)
	}

	var degreeSum, maxDegree, isolated int
	for _, degree := range degrees {
		degreeSum += degree
		if degree > maxDegree {
			maxDegree = degree
		}
		if degree == 0 {
			isolated++
		}
	}

	out := &types.BasicStats{
		EntityCount:       entityCount,
		RelationshipCount: relCount,
		MaxDegree:         maxDegree,
		IsolatedEntities:  isolated,
	}
	if entityCount > 0 {
		out.AvgDegree = float64(degreeSum) / float64(entityCount)
	}
	if entityCount > 1 {
		possible := float64(entityCount) * float64(entityCount-1) / 2
		out.Density = float64(relCount) / possible
	}

	value, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statistics: %w", err)
	}
	err = c.stats.UpsertStatistic(ctx, &types.GraphStatistic{
		Scope:      scope,
		Name:       types.BasicStatsName,
		Value:      value,
		ComputedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist statistics: %w", err)
	}
	return out, nil
}

// Get reads the cached row for scope. A missing row surfaces the store's
// NotFound; callers decide whether to fall back to Compute.
func (c *Cache) Get(ctx context.Context, scope string) (*types.GraphStatistic, error) {
	return c.stats.GetStatistic(ctx, scope, types.BasicStatsName)
}

// Extended computes the live aggregate view for scope: the basic metrics
// plus per-type breakdowns, distinct document count and the most connected
// entities. Nothing here is cached.
func (c *Cache) Extended(ctx context.Context, scope string) (*types.ExtendedStats, error) {
	basic, err := c.Compute(ctx, scope)
	if err != nil {
		return nil, err
	}

	degrees, err := c.rels.DegreeCounts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load degrees: %w", err)
	}

	out := &types.ExtendedStats{
		Basic:            *basic,
		EntityTypeCounts: make(map[string]int),
		RelationTypes:    make(map[string]int),
	}

	documents := make(map[string]bool)
	relSeen := make(map[string]bool)
	var ranked []types.ConnectedEntity

	for offset := 0; ; offset += 1000 {
		page, err := c.entities.ListEntities(ctx, scope, 1000, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entities: %w", err)
		}
		for _, entity := range page {
			out.EntityTypeCounts[entity.EntityType]++
			if entity.DocumentID != "" {
				documents[entity.DocumentID] = true
			}
			ranked = append(ranked, types.ConnectedEntity{
				ID:         entity.ID,
				Name:       entity.Name,
				EntityType: entity.EntityType,
				Degree:     degrees[entity.ID],
			})

			rels, err := c.rels.RelationshipsFor(ctx, entity.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load relationships: %w", err)
			}
			for _, rel := range rels {
				if relSeen[rel.ID] {
					continue
				}
				relSeen[rel.ID] = true
				out.RelationTypes[rel.RelationType]++
			}
		}
		if len(page) < 1000 {
			break
		}
	}

	out.DocumentCount = len(documents)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Degree != ranked[j].Degree {
			return ranked[i].Degree > ranked[j].Degree
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > mostConnectedLimit {
		ranked = ranked[:mostConnectedLimit]
	}
	out.MostConnected = ranked
	return out, nil
}
