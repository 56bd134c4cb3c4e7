// Package traversal implements bounded breadth-first graph operations:
// neighbor expansion, shortest-path search and subgraph extraction. All
// operations are read-only and safe to run concurrently; each one is bounded
// by a depth limit, an explored-node cap and the caller's context.
package traversal

import (
	"context"
	"fmt"
	"sort"

	"github.com/verkkograph/verkko/pkg/graph"
	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

// DefaultMaxVisited bounds total explored nodes per traversal when the
// caller does not set an explicit cap. It guards against combinatorial
// blowup on densely connected graphs.
const DefaultMaxVisited = 10_000

// Options bounds and filters a single traversal.
type Options struct {
	// MaxDepth is the hop bound. Neighbors and ShortestPath require
	// MaxDepth >= 1; Subgraph accepts 0 (seed-to-seed relationships only).
	MaxDepth int

	// RelationTypes is an allow-list of relation types; empty means all.
	RelationTypes []string

	// MinConfidence is the inclusive confidence floor applied at every hop.
	MinConfidence float64

	// MaxVisited caps total explored nodes. Zero means DefaultMaxVisited.
	MaxVisited int
}

func (o Options) maxVisited() int {
	if o.MaxVisited > 0 {
		return o.MaxVisited
	}
	return DefaultMaxVisited
}

func (o Options) validate(minDepth int) error {
	if o.MaxDepth < minDepth {
		if o.MaxDepth < 0 {
			return fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrNegativeDepth)
		}
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrBadDepth)
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrBadThreshold)
	}
	return nil
}

// Engine runs traversals over an adjacency index, resolving entity details
// through the entity store only when assembling results.
type Engine struct {
	index    *graph.Index
	entities store.EntityStore
}

// NewEngine creates a traversal engine over the given stores.
func NewEngine(entities store.EntityStore, rels store.RelationshipStore) *Engine {
	return &Engine{
		index:    graph.NewIndex(rels),
		entities: entities,
	}
}

// checkRound aborts a traversal between expansion rounds when the caller's
// context is done.
func checkRound(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Neighbors expands breadth-first from seedID over the undirected adjacency
// view, up to opts.MaxDepth hops. A node reachable at several depths is
// reported once, at the minimal depth, carrying the relation type and
// confidence of the edge that first reached it. Results are ordered by
// ascending depth, then descending confidence, then entity id. An empty seed
// or a seed without edges yields an empty result.
func (e *Engine) Neighbors(ctx context.Context, seedID string, opts Options) ([]types.NeighborResult, error) {
	if err := opts.validate(1); err != nil {
		return nil, err
	}
	if seedID == "" {
		return nil, nil
	}

	type hit struct {
		depth        int
		relationType string
		confidence   float64
	}

	visited := map[string]bool{seedID: true}
	hits := make(map[string]hit)
	frontier := []string{seedID}
	explored := 1
	limit := opts.maxVisited()

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		if err := checkRound(ctx); err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			edges, err := e.index.Edges(ctx, id, types.DirectionBoth, opts.RelationTypes, opts.MinConfidence)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				if visited[edge.OtherID] {
					continue
				}
				explored++
				if explored > limit {
					return nil, fmt.Errorf("%w: traversal exceeded %d explored nodes", types.ErrResourceExhausted, limit)
				}
				visited[edge.OtherID] = true
				hits[edge.OtherID] = hit{depth: depth, relationType: edge.RelationType, confidence: edge.Confidence}
				next = append(next, edge.OtherID)
			}
		}
		frontier = next
	}

	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for id := range hits {
		ids = append(ids, id)
	}
	entities, err := e.entities.GetEntities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve neighbors: %w", err)
	}

	out := make([]types.NeighborResult, 0, len(entities))
	for _, entity := range entities {
		h := hits[entity.ID]
		out = append(out, types.NeighborResult{
			EntityID:     entity.ID,
			Name:         entity.Name,
			EntityType:   entity.EntityType,
			Depth:        h.depth,
			RelationType: h.relationType,
			Confidence:   h.confidence,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

// path is a partial BFS path: the entity-id sequence from the start node and
// the relation types of the edges along it.
type path struct {
	entities  []string
	relations []string
}

func (p path) extend(entityID, relationType string) path {
	entities := make([]string, len(p.entities)+1)
	copy(entities, p.entities)
	entities[len(p.entities)] = entityID

	relations := make([]string, len(p.relations)+1)
	copy(relations, p.relations)
	relations[len(p.relations)] = relationType

	return path{entities: entities, relations: relations}
}

// less orders paths by their entity-id sequences.
func (p path) less(q path) bool {
	for i := range p.entities {
		if i >= len(q.entities) {
			return false
		}
		if p.entities[i] != q.entities[i] {
			return p.entities[i] < q.entities[i]
		}
	}
	return len(p.entities) < len(q.entities)
}

// ShortestPath finds a minimal-hop path between startID and endID over the
// undirected adjacency view, stopping at the first BFS frontier containing
// the target. Among equally short paths the one with the lexicographically
// smallest entity-id sequence wins. An unreachable target is a valid
// PathResult with Found=false, not an error.
func (e *Engine) ShortestPath(ctx context.Context, startID, endID string, opts Options) (*types.PathResult, error) {
	if err := opts.validate(1); err != nil {
		return nil, err
	}
	if startID == "" || endID == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}
	if startID == endID {
		return &types.PathResult{Found: true, Length: 0, EntityPath: []string{startID}}, nil
	}

	visited := map[string]bool{startID: true}
	frontier := map[string]path{startID: {entities: []string{startID}}}
	explored := 1
	limit := opts.maxVisited()

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		if err := checkRound(ctx); err != nil {
			return nil, err
		}

		// Expand parents in id order so the candidate comparison below is
		// deterministic regardless of map iteration.
		parents := make([]string, 0, len(frontier))
		for id := range frontier {
			parents = append(parents, id)
		}
		sort.Strings(parents)

		next := make(map[string]path)
		for _, parentID := range parents {
			parent := frontier[parentID]
			edges, err := e.index.Edges(ctx, parentID, types.DirectionBoth, opts.RelationTypes, opts.MinConfidence)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				if visited[edge.OtherID] {
					continue
				}
				candidate := parent.extend(edge.OtherID, edge.RelationType)
				if best, ok := next[edge.OtherID]; !ok || candidate.less(best) {
					if !ok {
						explored++
						if explored > limit {
							return nil, fmt.Errorf("%w: traversal exceeded %d explored nodes", types.ErrResourceExhausted, limit)
						}
					}
					next[edge.OtherID] = candidate
				}
			}
		}

		if found, ok := next[endID]; ok {
			return &types.PathResult{
				Found:        true,
				Length:       len(found.relations),
				EntityPath:   found.entities,
				RelationPath: found.relations,
			}, nil
		}

		frontier = next
		for id := range next {
			visited[id] = true
		}
	}

	return &types.PathResult{Found: false}, nil
}

// Subgraph computes the closure of the seed set within opts.MaxDepth hops
// and returns every relationship with both endpoints inside the closure that
// passes the filters, deduplicated and ordered by descending confidence.
// MaxDepth 0 keeps the closure at the seed set itself, so only seed-to-seed
// relationships are returned.
func (e *Engine) Subgraph(ctx context.Context, seedIDs []string, opts Options) ([]*types.Relationship, error) {
	if err := opts.validate(0); err != nil {
		return nil, err
	}
	if len(seedIDs) == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyIDSet)
	}

	closure := make(map[string]bool, len(seedIDs))
	var frontier []string
	for _, id := range seedIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
		}
		if !closure[id] {
			closure[id] = true
			frontier = append(frontier, id)
		}
	}
	explored := len(frontier)
	limit := opts.maxVisited()

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		if err := checkRound(ctx); err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			edges, err := e.index.Edges(ctx, id, types.DirectionBoth, opts.RelationTypes, opts.MinConfidence)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				if closure[edge.OtherID] {
					continue
				}
				explored++
				if explored > limit {
					return nil, fmt.Errorf("%w: traversal exceeded %d explored nodes", types.ErrResourceExhausted, limit)
				}
				closure[edge.OtherID] = true
				next = append(next, edge.OtherID)
			}
		}
		frontier = next
	}

	if err := checkRound(ctx); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var typeSet map[string]bool
	if len(opts.RelationTypes) > 0 {
		typeSet = make(map[string]bool, len(opts.RelationTypes))
		for _, rt := range opts.RelationTypes {
			typeSet[rt] = true
		}
	}

	seen := make(map[string]bool)
	var out []*types.Relationship
	for _, id := range ids {
		rels, err := e.index.Relationships(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if seen[rel.ID] {
				continue
			}
			if !closure[rel.HeadID] || !closure[rel.TailID] {
				continue
			}
			if typeSet != nil && !typeSet[rel.RelationType] {
				continue
			}
			if rel.Confidence < opts.MinConfidence {
				continue
			}
			seen[rel.ID] = true
			out = append(out, rel)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
