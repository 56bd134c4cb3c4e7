// Package assemble builds community context bundles: for a set of entity
// ids, the communities those entities belong to, each with its full member
// list and the relationships internal to the community.
package assemble

import (
	"context"
	"fmt"
	"sort"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/traversal"
	"github.com/verkkograph/verkko/pkg/types"
)

// Assembler gathers community context for retrieval pipelines.
type Assembler struct {
	entities    store.EntityStore
	rels        store.RelationshipStore
	communities store.CommunityStore
	engine      *traversal.Engine
}

// NewAssembler creates an Assembler over the given stores. The traversal
// engine is used only for the optional one-hop widening of the input set.
func NewAssembler(entities store.EntityStore, rels store.RelationshipStore, communities store.CommunityStore, engine *traversal.Engine) *Assembler {
	return &Assembler{
		entities:    entities,
		rels:        rels,
		communities: communities,
		engine:      engine,
	}
}

// Context returns one bundle per community that has at least one member in
// the entity set. With includeNeighbors the input set is first widened by
// one traversal hop. Bundles are ordered by descending member count; a
// community without intra-member relationships keeps an empty relationship
// list. No matching community is an empty result, not an error.
func (a *Assembler) Context(ctx context.Context, entityIDs []string, includeNeighbors bool) ([]types.CommunityContext, error) {
	if len(entityIDs) == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyIDSet)
	}
	for _, id := range entityIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
		}
	}

	idSet := make(map[string]bool, len(entityIDs))
	ids := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		if !idSet[id] {
			idSet[id] = true
			ids = append(ids, id)
		}
	}

	if includeNeighbors {
		for _, id := range entityIDs {
			neighbors, err := a.engine.Neighbors(ctx, id, traversal.Options{MaxDepth: 1})
			if err != nil {
				return nil, fmt.Errorf("failed to widen entity set: %w", err)
			}
			for _, n := range neighbors {
				if !idSet[n.EntityID] {
					idSet[n.EntityID] = true
					ids = append(ids, n.EntityID)
				}
			}
		}
	}

	communities, err := a.communities.CommunitiesForEntities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find communities: %w", err)
	}

	out := make([]types.CommunityContext, 0, len(communities))
	for _, community := range communities {
		bundle, err := a.assembleOne(ctx, community)
		if err != nil {
			return nil, err
		}
		out = append(out, *bundle)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberCount != out[j].MemberCount {
			return out[i].MemberCount > out[j].MemberCount
		}
		return out[i].CommunityID < out[j].CommunityID
	})
	return out, nil
}

func (a *Assembler) assembleOne(ctx context.Context, community *types.Community) (*types.CommunityContext, error) {
	members, err := a.communities.CommunityMembers(ctx, community.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of %s: %w", community.ID, err)
	}

	memberSet := make(map[string]bool, len(members))
	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberSet[m.EntityID] = true
		memberIDs = append(memberIDs, m.EntityID)
	}
	sort.Strings(memberIDs)

	entities, err := a.entities.GetEntities(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load member entities of %s: %w", community.ID, err)
	}

	// Intra-community edges only: both endpoints must be members.
	seen := make(map[string]bool)
	rels := make([]*types.Relationship, 0)
	for _, id := range memberIDs {
		incident, err := a.rels.RelationshipsFor(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load relationships of %s: %w", id, err)
		}
		for _, rel := range incident {
			if seen[rel.ID] || !memberSet[rel.HeadID] || !memberSet[rel.TailID] {
				continue
			}
			seen[rel.ID] = true
			rels = append(rels, rel)
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Confidence != rels[j].Confidence {
			return rels[i].Confidence > rels[j].Confidence
		}
		return rels[i].ID < rels[j].ID
	})

	return &types.CommunityContext{
		CommunityID:   community.ID,
		Name:          community.Name,
		Summary:       community.Summary,
		MemberCount:   len(members),
		Members:       entities,
		Relationships: rels,
	}, nil
}
