package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

func seedIndex(t *testing.T) *Index {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.PutEntity(ctx, &types.Entity{ID: id, Name: id, EntityType: "thing"}))
	}
	for _, r := range []*types.Relationship{
		{ID: "ab", HeadID: "a", TailID: "b", RelationType: "knows", Confidence: 0.9},
		{ID: "ca", HeadID: "c", TailID: "a", RelationType: "knows", Confidence: 0.5},
		{ID: "ad", HeadID: "a", TailID: "d", RelationType: "owns", Confidence: 0.7},
	} {
		require.NoError(t, s.PutRelationship(ctx, r))
	}
	return NewIndex(s)
}

func TestIndexEdges(t *testing.T) {
	ctx := context.Background()
	ix := seedIndex(t)

	t.Run("both directions ordered by confidence", func(t *testing.T) {
		edges, err := ix.Edges(ctx, "a", types.DirectionBoth, nil, 0)
		require.NoError(t, err)
		require.Len(t, edges, 3)
		assert.Equal(t, "b", edges[0].OtherID)
		assert.Equal(t, "d", edges[1].OtherID)
		assert.Equal(t, "c", edges[2].OtherID)
		assert.True(t, edges[0].Outgoing)
		assert.False(t, edges[2].Outgoing)
	})

	t.Run("outgoing only", func(t *testing.T) {
		edges, err := ix.Edges(ctx, "a", types.DirectionOut, nil, 0)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		for _, e := range edges {
			assert.True(t, e.Outgoing)
		}
	})

	t.Run("incoming only", func(t *testing.T) {
		edges, err := ix.Edges(ctx, "a", types.DirectionIn, nil, 0)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "c", edges[0].OtherID)
	})

	t.Run("relation type filter", func(t *testing.T) {
		edges, err := ix.Edges(ctx, "a", types.DirectionBoth, []string{"owns"}, 0)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "ad", edges[0].RelationshipID)
	})

	t.Run("min confidence is inclusive", func(t *testing.T) {
		edges, err := ix.Edges(ctx, "a", types.DirectionBoth, nil, 0.7)
		require.NoError(t, err)
		assert.Len(t, edges, 2)

		edges, err = ix.Edges(ctx, "a", types.DirectionBoth, nil, 0.71)
		require.NoError(t, err)
		assert.Len(t, edges, 1)
	})

	t.Run("unknown entity has no edges", func(t *testing.T) {
		edges, err := ix.Edges(ctx, "zz", types.DirectionBoth, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := ix.Edges(ctx, "", types.DirectionBoth, nil, 0)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}
