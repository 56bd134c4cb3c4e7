package verkko

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/verkkograph/verkko/pkg/assemble"
	"github.com/verkkograph/verkko/pkg/match"
	"github.com/verkkograph/verkko/pkg/stats"
	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/traversal"
	"github.com/verkkograph/verkko/pkg/types"
)

// Options configures an Engine.
type Options struct {
	// Logger receives operational logs. Default: slog.Default().
	Logger *slog.Logger

	// Breaker wraps the store with a circuit breaker when enabled.
	Breaker store.BreakerConfig

	// Alerter is notified when the circuit breaker opens. Optional.
	Alerter store.StateAlerter
}

// Engine wires the traversal, matching, statistics and assembly components
// over one GraphStore. It implements Verkko.
type Engine struct {
	store     store.GraphStore
	traversal *traversal.Engine
	matcher   *match.Matcher
	stats     *stats.Cache
	assembler *assemble.Assembler
	log       *slog.Logger
}

// New creates an Engine over st.
func New(st store.GraphStore, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Breaker.Enabled {
		st = store.NewBreakerStoreWithAlerter(st, opts.Breaker, "graph-store", opts.Alerter)
	}

	engine := traversal.NewEngine(st, st)
	return &Engine{
		store:     st,
		traversal: engine,
		matcher:   match.NewMatcher(st, st),
		stats:     stats.NewCache(st, st, st),
		assembler: assemble.NewAssembler(st, st, st, engine),
		log:       opts.Logger,
	}
}

// Open builds the store from cfg, initializes it and returns an Engine over
// it.
func Open(ctx context.Context, cfg store.Config, opts Options) (*Engine, error) {
	st, err := store.NewGraphStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Initialize(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return New(st, opts), nil
}

// Close releases the underlying store.
func (e *Engine) Close() error { return e.store.Close() }

// Store exposes the underlying store for loaders and exporters.
func (e *Engine) Store() store.GraphStore { return e.store }

// Neighbors implements Traverser.
func (e *Engine) Neighbors(ctx context.Context, seedID string, opts traversal.Options) ([]types.NeighborResult, error) {
	out, err := e.traversal.Neighbors(ctx, seedID, opts)
	if err != nil {
		return nil, err
	}
	e.log.Debug("neighbors expanded", "seed", seedID, "depth", opts.MaxDepth, "found", len(out))
	return out, nil
}

// ShortestPath implements Traverser.
func (e *Engine) ShortestPath(ctx context.Context, startID, endID string, opts traversal.Options) (*types.PathResult, error) {
	out, err := e.traversal.ShortestPath(ctx, startID, endID, opts)
	if err != nil {
		return nil, err
	}
	e.log.Debug("path searched", "start", startID, "end", endID, "found", out.Found, "length", out.Length)
	return out, nil
}

// Subgraph implements Traverser.
func (e *Engine) Subgraph(ctx context.Context, seedIDs []string, opts traversal.Options) ([]*types.Relationship, error) {
	out, err := e.traversal.Subgraph(ctx, seedIDs, opts)
	if err != nil {
		return nil, err
	}
	e.log.Debug("subgraph extracted", "seeds", len(seedIDs), "depth", opts.MaxDepth, "relationships", len(out))
	return out, nil
}

// FindByName implements Matcher.
func (e *Engine) FindByName(ctx context.Context, query string, threshold float64, limit int) ([]types.MatchResult, error) {
	return e.matcher.FindByName(ctx, query, threshold, limit)
}

// ComputeStatistics implements StatsComputer.
func (e *Engine) ComputeStatistics(ctx context.Context, scope string) (*types.BasicStats, error) {
	out, err := e.stats.Compute(ctx, scope)
	if err != nil {
		return nil, err
	}
	e.log.Info("statistics computed", "scope", scope, "entities", out.EntityCount, "relationships", out.RelationshipCount)
	return out, nil
}

// GetStatistics implements StatsComputer.
func (e *Engine) GetStatistics(ctx context.Context, scope string) (*types.GraphStatistic, error) {
	return e.stats.Get(ctx, scope)
}

// ExtendedStatistics implements StatsComputer.
func (e *Engine) ExtendedStatistics(ctx context.Context, scope string) (*types.ExtendedStats, error) {
	return e.stats.Extended(ctx, scope)
}

// CommunityContext implements ContextAssembler.
func (e *Engine) CommunityContext(ctx context.Context, entityIDs []string, includeNeighbors bool) ([]types.CommunityContext, error) {
	return e.assembler.Context(ctx, entityIDs, includeNeighbors)
}

// GetEntity implements GraphReader.
func (e *Engine) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}
	return e.store.GetEntity(ctx, id)
}

// GetRelationship implements GraphReader.
func (e *Engine) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}
	return e.store.GetRelationship(ctx, id)
}

// GetCommunity implements GraphReader.
func (e *Engine) GetCommunity(ctx context.Context, id string) (*types.Community, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}
	return e.store.GetCommunity(ctx, id)
}

// DocumentGraph implements GraphReader: a document's entities plus every
// relationship touching one of them.
func (e *Engine) DocumentGraph(ctx context.Context, documentID string) (*types.DocumentGraph, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyID)
	}

	out := &types.DocumentGraph{DocumentID: documentID}
	seen := make(map[string]bool)
	for offset := 0; ; offset += 1000 {
		page, err := e.store.ListEntities(ctx, documentID, 1000, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list document entities: %w", err)
		}
		for _, entity := range page {
			out.Entities = append(out.Entities, entity)

			rels, err := e.store.RelationshipsFor(ctx, entity.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load relationships: %w", err)
			}
			for _, rel := range rels {
				if seen[rel.ID] {
					continue
				}
				seen[rel.ID] = true
				out.Relationships = append(out.Relationships, rel)
			}
		}
		if len(page) < 1000 {
			break
		}
	}

	sort.Slice(out.Relationships, func(i, j int) bool {
		if out.Relationships[i].Confidence != out.Relationships[j].Confidence {
			return out.Relationships[i].Confidence > out.Relationships[j].Confidence
		}
		return out.Relationships[i].ID < out.Relationships[j].ID
	})
	return out, nil
}

// EntitiesByType implements GraphReader.
func (e *Engine) EntitiesByType(ctx context.Context, entityType string) ([]*types.Entity, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyName)
	}
	return e.store.EntitiesByType(ctx, entityType)
}

// RelationshipsByType implements GraphReader.
func (e *Engine) RelationshipsByType(ctx context.Context, relationType string) ([]*types.Relationship, error) {
	if relationType == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyName)
	}
	return e.store.RelationshipsByType(ctx, relationType)
}
