package traversal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

func newEngine(t *testing.T, entities []*types.Entity, rels []*types.Relationship) *Engine {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, e := range entities {
		require.NoError(t, s.PutEntity(ctx, e))
	}
	for _, r := range rels {
		require.NoError(t, s.PutRelationship(ctx, r))
	}
	return NewEngine(s, s)
}

func geoEngine(t *testing.T) *Engine {
	return newEngine(t,
		[]*types.Entity{
			{ID: "1", Name: "Paris", EntityType: "location"},
			{ID: "2", Name: "France", EntityType: "location"},
			{ID: "3", Name: "Europe", EntityType: "location"},
		},
		[]*types.Relationship{
			{ID: "r12", HeadID: "1", TailID: "2", RelationType: "located_in", Confidence: 0.9},
			{ID: "r23", HeadID: "2", TailID: "3", RelationType: "part_of", Confidence: 0.8},
		},
	)
}

func TestNeighbors(t *testing.T) {
	ctx := context.Background()

	t.Run("two hop expansion", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Neighbors(ctx, "1", Options{MaxDepth: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "2", got[0].EntityID)
		assert.Equal(t, "France", got[0].Name)
		assert.Equal(t, 1, got[0].Depth)
		assert.Equal(t, "located_in", got[0].RelationType)
		assert.Equal(t, 0.9, got[0].Confidence)

		assert.Equal(t, "3", got[1].EntityID)
		assert.Equal(t, 2, got[1].Depth)
		assert.Equal(t, "part_of", got[1].RelationType)
		assert.Equal(t, 0.8, got[1].Confidence)
	})

	t.Run("depth bound respected", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Neighbors(ctx, "1", Options{MaxDepth: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].EntityID)
	})

	t.Run("confidence filter applied per hop", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Neighbors(ctx, "1", Options{MaxDepth: 2, MinConfidence: 0.85})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].EntityID)
	})

	t.Run("relation type filter", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Neighbors(ctx, "2", Options{MaxDepth: 1, RelationTypes: []string{"part_of"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].EntityID)
	})

	t.Run("cycles reported once at minimal depth", func(t *testing.T) {
		e := newEngine(t,
			[]*types.Entity{
				{ID: "a", Name: "a", EntityType: "t"},
				{ID: "b", Name: "b", EntityType: "t"},
				{ID: "c", Name: "c", EntityType: "t"},
			},
			[]*types.Relationship{
				{ID: "ab", HeadID: "a", TailID: "b", RelationType: "x", Confidence: 1},
				{ID: "bc", HeadID: "b", TailID: "c", RelationType: "x", Confidence: 1},
				{ID: "ca", HeadID: "c", TailID: "a", RelationType: "x", Confidence: 1},
			},
		)

		got, err := e.Neighbors(ctx, "a", Options{MaxDepth: 5})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, n := range got {
			assert.Equal(t, 1, n.Depth)
			assert.NotEqual(t, "a", n.EntityID)
		}
	})

	t.Run("isolated entity has no neighbors", func(t *testing.T) {
		e := newEngine(t, []*types.Entity{{ID: "solo", Name: "solo", EntityType: "t"}}, nil)

		got, err := e.Neighbors(ctx, "solo", Options{MaxDepth: 3})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty seed yields empty result", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Neighbors(ctx, "", Options{MaxDepth: 1})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		e := geoEngine(t)

		_, err := e.Neighbors(ctx, "1", Options{MaxDepth: 0})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)

		_, err = e.Neighbors(ctx, "1", Options{MaxDepth: 1, MinConfidence: 1.5})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("explored cap exceeded", func(t *testing.T) {
		e := geoEngine(t)

		_, err := e.Neighbors(ctx, "1", Options{MaxDepth: 2, MaxVisited: 2})
		assert.ErrorIs(t, err, types.ErrResourceExhausted)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		e := geoEngine(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := e.Neighbors(cancelled, "1", Options{MaxDepth: 2})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestShortestPath(t *testing.T) {
	ctx := context.Background()

	t.Run("end to end", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.ShortestPath(ctx, "1", "3", Options{MaxDepth: 5})
		require.NoError(t, err)
		assert.True(t, got.Found)
		assert.Equal(t, 2, got.Length)
		assert.Equal(t, []string{"1", "2", "3"}, got.EntityPath)
		assert.Equal(t, []string{"located_in", "part_of"}, got.RelationPath)
	})

	t.Run("start equals end", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.ShortestPath(ctx, "1", "1", Options{MaxDepth: 1})
		require.NoError(t, err)
		assert.True(t, got.Found)
		assert.Equal(t, 0, got.Length)
		assert.Equal(t, []string{"1"}, got.EntityPath)
		assert.Empty(t, got.RelationPath)
	})

	t.Run("unreachable is not an error", func(t *testing.T) {
		e := newEngine(t,
			[]*types.Entity{
				{ID: "a", Name: "a", EntityType: "t"},
				{ID: "z", Name: "z", EntityType: "t"},
			},
			nil,
		)

		got, err := e.ShortestPath(ctx, "a", "z", Options{MaxDepth: 4})
		require.NoError(t, err)
		assert.False(t, got.Found)
	})

	t.Run("depth bound makes target unreachable", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.ShortestPath(ctx, "1", "3", Options{MaxDepth: 1})
		require.NoError(t, err)
		assert.False(t, got.Found)
	})

	t.Run("lexicographic tie break", func(t *testing.T) {
		// Two minimal paths s -> m1 -> t and s -> m2 -> t; the one through
		// the smaller intermediate id must win.
		e := newEngine(t,
			[]*types.Entity{
				{ID: "s", Name: "s", EntityType: "t"},
				{ID: "m1", Name: "m1", EntityType: "t"},
				{ID: "m2", Name: "m2", EntityType: "t"},
				{ID: "t", Name: "t", EntityType: "t"},
			},
			[]*types.Relationship{
				{ID: "e1", HeadID: "s", TailID: "m2", RelationType: "x", Confidence: 1},
				{ID: "e2", HeadID: "s", TailID: "m1", RelationType: "y", Confidence: 0.5},
				{ID: "e3", HeadID: "m2", TailID: "t", RelationType: "x", Confidence: 1},
				{ID: "e4", HeadID: "m1", TailID: "t", RelationType: "y", Confidence: 0.5},
			},
		)

		got, err := e.ShortestPath(ctx, "s", "t", Options{MaxDepth: 3})
		require.NoError(t, err)
		require.True(t, got.Found)
		assert.Equal(t, []string{"s", "m1", "t"}, got.EntityPath)
		assert.Equal(t, []string{"y", "y"}, got.RelationPath)
	})

	t.Run("bfs minimality", func(t *testing.T) {
		// Direct edge plus a longer detour; BFS must take the direct edge.
		e := newEngine(t,
			[]*types.Entity{
				{ID: "a", Name: "a", EntityType: "t"},
				{ID: "b", Name: "b", EntityType: "t"},
				{ID: "c", Name: "c", EntityType: "t"},
			},
			[]*types.Relationship{
				{ID: "ab", HeadID: "a", TailID: "b", RelationType: "x", Confidence: 1},
				{ID: "bc", HeadID: "b", TailID: "c", RelationType: "x", Confidence: 1},
				{ID: "ac", HeadID: "a", TailID: "c", RelationType: "x", Confidence: 1},
			},
		)

		short, err := e.ShortestPath(ctx, "a", "c", Options{MaxDepth: 1})
		require.NoError(t, err)
		require.True(t, short.Found)
		assert.Equal(t, 1, short.Length)

		wide, err := e.ShortestPath(ctx, "a", "c", Options{MaxDepth: 5})
		require.NoError(t, err)
		require.True(t, wide.Found)
		assert.Equal(t, 1, wide.Length)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		e := geoEngine(t)

		_, err := e.ShortestPath(ctx, "", "3", Options{MaxDepth: 2})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)

		_, err = e.ShortestPath(ctx, "1", "3", Options{MaxDepth: 0})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}

func TestSubgraph(t *testing.T) {
	ctx := context.Background()

	t.Run("depth one excludes half-inside relationships", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Subgraph(ctx, []string{"1"}, Options{MaxDepth: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "r12", got[0].ID)
	})

	t.Run("depth zero keeps seed-to-seed only", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Subgraph(ctx, []string{"1", "2"}, Options{MaxDepth: 0})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "r12", got[0].ID)

		got, err = e.Subgraph(ctx, []string{"1", "3"}, Options{MaxDepth: 0})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("full closure ordered by confidence", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Subgraph(ctx, []string{"1"}, Options{MaxDepth: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r12", got[0].ID)
		assert.Equal(t, "r23", got[1].ID)
	})

	t.Run("duplicates appear once with overlapping seeds", func(t *testing.T) {
		e := geoEngine(t)

		got, err := e.Subgraph(ctx, []string{"1", "2", "3"}, Options{MaxDepth: 1})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty seed set rejected", func(t *testing.T) {
		e := geoEngine(t)

		_, err := e.Subgraph(ctx, nil, Options{MaxDepth: 1})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("negative depth rejected", func(t *testing.T) {
		e := geoEngine(t)

		_, err := e.Subgraph(ctx, []string{"1"}, Options{MaxDepth: -1})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}
