// Package community detects clusters of densely inter-related entities
// using label propagation and persists them as Community rows.
package community

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

const (
	// Algorithm is the detection-algorithm tag written on produced rows.
	Algorithm = "label_propagation"

	maxIterations = 100
	pageSize      = 1000
)

// Detector runs community detection over a store.
type Detector struct {
	entities    store.EntityStore
	rels        store.RelationshipStore
	communities store.CommunityStore
	log         *slog.Logger
}

// NewDetector creates a Detector. A nil logger falls back to slog.Default().
func NewDetector(entities store.EntityStore, rels store.RelationshipStore, communities store.CommunityStore, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{entities: entities, rels: rels, communities: communities, log: log}
}

type neighbor struct {
	entityID  string
	edgeCount int
}

// Detect clusters the scope's entities and persists one Community per
// cluster, with memberships. Singleton clusters are dropped. An empty scope
// covers the whole graph.
func (d *Detector) Detect(ctx context.Context, scope string) ([]*types.Community, error) {
	entities, err := d.listEntities(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}

	byID := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	projection, relsByEntity, err := d.buildProjection(ctx, entities, byID)
	if err != nil {
		return nil, err
	}

	clusters := labelPropagation(projection)

	communities := make([]*types.Community, 0, len(clusters))
	for _, cluster := range clusters {
		community, err := d.persistCluster(ctx, cluster, byID, relsByEntity, scope)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}

	sort.Slice(communities, func(i, j int) bool {
		if communities[i].Size != communities[j].Size {
			return communities[i].Size > communities[j].Size
		}
		return communities[i].Name < communities[j].Name
	})

	d.log.Info("community detection complete",
		"scope", scope,
		"entities", len(entities),
		"communities", len(communities))
	return communities, nil
}

func (d *Detector) listEntities(ctx context.Context, scope string) ([]*types.Entity, error) {
	var all []*types.Entity
	for offset := 0; ; offset += pageSize {
		page, err := d.entities.ListEntities(ctx, scope, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list entities: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// buildProjection builds the weighted neighbor view used by label
// propagation. Neighbors outside the scope are ignored. The raw adjacency
// is returned too so cluster density can be derived without re-reading.
func (d *Detector) buildProjection(ctx context.Context, entities []*types.Entity, byID map[string]*types.Entity) (map[string][]neighbor, map[string][]*types.Relationship, error) {
	projection := make(map[string][]neighbor, len(entities))
	relsByEntity := make(map[string][]*types.Relationship, len(entities))

	for _, entity := range entities {
		rels, err := d.rels.RelationshipsFor(ctx, entity.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read relationships for %s: %w", entity.ID, err)
		}
		relsByEntity[entity.ID] = rels

		counts := make(map[string]int)
		for _, rel := range rels {
			other, ok := rel.Other(entity.ID)
			if !ok {
				continue
			}
			if _, inScope := byID[other]; !inScope {
				continue
			}
			counts[other]++
		}

		neighbors := make([]neighbor, 0, len(counts))
		for id, count := range counts {
			neighbors = append(neighbors, neighbor{entityID: id, edgeCount: count})
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].entityID < neighbors[j].entityID })
		projection[entity.ID] = neighbors
	}

	return projection, relsByEntity, nil
}

// labelPropagation assigns each node the label carried by the weighted
// majority of its neighbors, iterating synchronously until no label moves.
// Clusters with a single member are dropped.
func labelPropagation(projection map[string][]neighbor) [][]string {
	if len(projection) == 0 {
		return nil
	}

	ids := make([]string, 0, len(projection))
	for id := range projection {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	labels := make(map[string]int, len(ids))
	for i, id := range ids {
		labels[id] = i
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		noChange := true
		next := make(map[string]int, len(ids))

		for _, id := range ids {
			current := labels[id]

			candidates := make(map[int]int)
			for _, n := range projection[id] {
				if label, ok := labels[n.entityID]; ok {
					candidates[label] += n.edgeCount
				}
			}

			type score struct {
				label int
				count int
			}
			scores := make([]score, 0, len(candidates))
			for label, count := range candidates {
				scores = append(scores, score{label: label, count: count})
			}
			sort.Slice(scores, func(i, j int) bool {
				if scores[i].count != scores[j].count {
					return scores[i].count > scores[j].count
				}
				return scores[i].label > scores[j].label
			})

			newLabel := current
			if len(scores) > 0 {
				top := scores[0]
				// A single shared edge only pulls the node toward the
				// larger label, so ties settle deterministically.
				if top.count > 1 || top.label > current {
					newLabel = top.label
				}
			}

			next[id] = newLabel
			if newLabel != current {
				noChange = false
			}
		}

		if noChange {
			break
		}
		labels = next
	}

	grouped := make(map[int][]string)
	for _, id := range ids {
		grouped[labels[id]] = append(grouped[labels[id]], id)
	}

	var clusters [][]string
	for _, cluster := range grouped {
		if len(cluster) > 1 {
			sort.Strings(cluster)
			clusters = append(clusters, cluster)
		}
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})
	return clusters
}

// persistCluster writes one cluster as a Community plus its memberships.
// The community is named after the member with the most intra-cluster edges.
func (d *Detector) persistCluster(ctx context.Context, cluster []string, byID map[string]*types.Entity, relsByEntity map[string][]*types.Relationship, scope string) (*types.Community, error) {
	members := make(map[string]struct{}, len(cluster))
	for _, id := range cluster {
		members[id] = struct{}{}
	}

	intraDegree := make(map[string]int, len(cluster))
	seen := make(map[string]struct{})
	intraRels := 0
	for _, id := range cluster {
		for _, rel := range relsByEntity[id] {
			other, ok := rel.Other(id)
			if !ok {
				continue
			}
			if _, in := members[other]; !in {
				continue
			}
			intraDegree[id]++
			if _, dup := seen[rel.ID]; !dup {
				seen[rel.ID] = struct{}{}
				intraRels++
			}
		}
	}

	anchor := cluster[0]
	for _, id := range cluster[1:] {
		if intraDegree[id] > intraDegree[anchor] {
			anchor = id
		}
	}

	n := len(cluster)
	density := float64(intraRels) / (float64(n) * float64(n-1) / 2)

	community := &types.Community{
		Name:       fmt.Sprintf("%s cluster", byID[anchor].Name),
		Size:       n,
		Density:    density,
		DocumentID: scope,
		Algorithm:  Algorithm,
	}
	if err := d.communities.PutCommunity(ctx, community); err != nil {
		return nil, fmt.Errorf("failed to store community: %w", err)
	}

	maxDegree := intraDegree[anchor]
	for _, id := range cluster {
		strength := 1.0
		if maxDegree > 0 {
			strength = float64(intraDegree[id]) / float64(maxDegree)
		}
		err := d.communities.PutMembership(ctx, &types.CommunityMember{
			EntityID:    id,
			CommunityID: community.ID,
			Strength:    strength,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store membership: %w", err)
		}
	}

	return community, nil
}
