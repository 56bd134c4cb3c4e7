package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verkkograph/verkko/pkg/types"
)

// testGraphStore exercises the GraphStore contract against a backend. Memory
// and badger both run it; the postgres and neo4j backends need a live server
// and are covered by the same call paths in integration environments.
func testGraphStore(t *testing.T, newStore func(t *testing.T) GraphStore) {
	ctx := context.Background()

	seed := func(t *testing.T) GraphStore {
		s := newStore(t)
		require.NoError(t, s.Initialize(ctx))

		for _, e := range []*types.Entity{
			{ID: "paris", Name: "Paris", EntityType: "location", DocumentID: "doc-1"},
			{ID: "france", Name: "France", EntityType: "location", DocumentID: "doc-1"},
			{ID: "europe", Name: "Europe", EntityType: "location", DocumentID: "doc-2"},
		} {
			require.NoError(t, s.PutEntity(ctx, e))
		}
		for _, r := range []*types.Relationship{
			{ID: "r1", HeadID: "paris", TailID: "france", RelationType: "located_in", Confidence: 0.9},
			{ID: "r2", HeadID: "france", TailID: "europe", RelationType: "part_of", Confidence: 0.8},
		} {
			require.NoError(t, s.PutRelationship(ctx, r))
		}
		return s
	}

	t.Run("entity round trip", func(t *testing.T) {
		s := seed(t)

		e, err := s.GetEntity(ctx, "paris")
		require.NoError(t, err)
		assert.Equal(t, "Paris", e.Name)
		assert.Equal(t, "paris", e.NormalizedName)
		assert.False(t, e.UpdatedAt.IsZero())

		_, err = s.GetEntity(ctx, "atlantis")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("get entities skips missing ids", func(t *testing.T) {
		s := seed(t)

		got, err := s.GetEntities(ctx, []string{"paris", "atlantis", "europe"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("list entities scoped", func(t *testing.T) {
		s := seed(t)

		all, err := s.ListEntities(ctx, "", 10, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		scoped, err := s.ListEntities(ctx, "doc-1", 10, 0)
		require.NoError(t, err)
		assert.Len(t, scoped, 2)

		n, err := s.CountEntities(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("entities by type", func(t *testing.T) {
		s := seed(t)
		require.NoError(t, s.PutEntity(ctx, &types.Entity{ID: "curie", Name: "Marie Curie", EntityType: "person"}))

		people, err := s.EntitiesByType(ctx, "person")
		require.NoError(t, err)
		require.Len(t, people, 1)
		assert.Equal(t, "curie", people[0].ID)
	})

	t.Run("relationship constraints", func(t *testing.T) {
		s := seed(t)

		err := s.PutRelationship(ctx, &types.Relationship{
			HeadID: "paris", TailID: "paris", RelationType: "twinned_with", Confidence: 1,
		})
		assert.ErrorIs(t, err, types.ErrConstraintViolation)

		err = s.PutRelationship(ctx, &types.Relationship{
			HeadID: "paris", TailID: "ghost", RelationType: "located_in", Confidence: 1,
		})
		assert.ErrorIs(t, err, types.ErrConstraintViolation)

		err = s.PutRelationship(ctx, &types.Relationship{
			HeadID: "paris", TailID: "france", RelationType: "located_in", Confidence: 0.5,
		})
		assert.ErrorIs(t, err, types.ErrConstraintViolation)

		// Same endpoints under a different relation type is a new edge.
		err = s.PutRelationship(ctx, &types.Relationship{
			HeadID: "paris", TailID: "france", RelationType: "capital_of", Confidence: 1,
		})
		assert.NoError(t, err)
	})

	t.Run("relationships for entity", func(t *testing.T) {
		s := seed(t)

		rels, err := s.RelationshipsFor(ctx, "france")
		require.NoError(t, err)
		assert.Len(t, rels, 2)

		rels, err = s.RelationshipsFor(ctx, "paris")
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "r1", rels[0].ID)
	})

	t.Run("relationships by type", func(t *testing.T) {
		s := seed(t)

		rels, err := s.RelationshipsByType(ctx, "part_of")
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "r2", rels[0].ID)
	})

	t.Run("degree counts include isolated entities", func(t *testing.T) {
		s := seed(t)
		require.NoError(t, s.PutEntity(ctx, &types.Entity{ID: "mars", Name: "Mars", EntityType: "location"}))

		degrees, err := s.DegreeCounts(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 1, degrees["paris"])
		assert.Equal(t, 2, degrees["france"])
		assert.Equal(t, 0, degrees["mars"])
	})

	t.Run("delete entity cascades", func(t *testing.T) {
		s := seed(t)

		require.NoError(t, s.DeleteEntity(ctx, "france"))

		_, err := s.GetRelationship(ctx, "r1")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = s.GetRelationship(ctx, "r2")
		assert.ErrorIs(t, err, types.ErrNotFound)

		// The triple slot is free again once the edge is gone.
		require.NoError(t, s.PutEntity(ctx, &types.Entity{ID: "france", Name: "France", EntityType: "location"}))
		err = s.PutRelationship(ctx, &types.Relationship{
			HeadID: "paris", TailID: "france", RelationType: "located_in", Confidence: 1,
		})
		assert.NoError(t, err)
	})

	t.Run("delete relationship", func(t *testing.T) {
		s := seed(t)

		require.NoError(t, s.DeleteRelationship(ctx, "r1"))
		assert.ErrorIs(t, s.DeleteRelationship(ctx, "r1"), types.ErrNotFound)

		rels, err := s.RelationshipsFor(ctx, "paris")
		require.NoError(t, err)
		assert.Empty(t, rels)
	})

	t.Run("communities and memberships", func(t *testing.T) {
		s := seed(t)

		require.NoError(t, s.PutCommunity(ctx, &types.Community{ID: "c1", Name: "Western Europe", Size: 2}))
		require.NoError(t, s.PutMembership(ctx, &types.CommunityMember{EntityID: "paris", CommunityID: "c1", Strength: 1}))
		require.NoError(t, s.PutMembership(ctx, &types.CommunityMember{EntityID: "france", CommunityID: "c1", Strength: 0.7}))

		err := s.PutMembership(ctx, &types.CommunityMember{EntityID: "ghost", CommunityID: "c1", Strength: 1})
		assert.ErrorIs(t, err, types.ErrConstraintViolation)

		communities, err := s.CommunitiesForEntities(ctx, []string{"paris", "europe"})
		require.NoError(t, err)
		require.Len(t, communities, 1)
		assert.Equal(t, "Western Europe", communities[0].Name)

		members, err := s.CommunityMembers(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, members, 2)
		ids := []string{members[0].EntityID, members[1].EntityID}
		assert.ElementsMatch(t, []string{"paris", "france"}, ids)

		none, err := s.CommunitiesForEntities(ctx, []string{"europe"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("statistics upsert", func(t *testing.T) {
		s := seed(t)

		_, err := s.GetStatistic(ctx, "", types.BasicStatsName)
		assert.ErrorIs(t, err, types.ErrNotFound)

		first, err := json.Marshal(types.BasicStats{EntityCount: 3})
		require.NoError(t, err)
		require.NoError(t, s.UpsertStatistic(ctx, &types.GraphStatistic{
			Name: types.BasicStatsName, Value: first,
		}))

		second, err := json.Marshal(types.BasicStats{EntityCount: 4})
		require.NoError(t, err)
		require.NoError(t, s.UpsertStatistic(ctx, &types.GraphStatistic{
			Name: types.BasicStatsName, Value: second,
		}))

		got, err := s.GetStatistic(ctx, "", types.BasicStatsName)
		require.NoError(t, err)

		var stats types.BasicStats
		require.NoError(t, json.Unmarshal(got.Value, &stats))
		assert.Equal(t, 4, stats.EntityCount)
	})

	t.Run("invalid writes rejected before storage", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Initialize(ctx))

		err := s.PutEntity(ctx, &types.Entity{Name: "", EntityType: "location"})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)

		err = s.PutRelationship(ctx, &types.Relationship{HeadID: "a", TailID: "b", RelationType: "", Confidence: 1})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)

		err = s.PutRelationship(ctx, &types.Relationship{HeadID: "a", TailID: "b", RelationType: "x", Confidence: 3})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}

func TestNewGraphStoreConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default backend is memory", cfg: Config{}},
		{name: "memory", cfg: Config{Backend: BackendMemory}},
		{name: "badger without path", cfg: Config{Backend: BackendBadger}, wantErr: true},
		{name: "postgres without dsn", cfg: Config{Backend: BackendPostgres}, wantErr: true},
		{name: "neo4j without uri", cfg: Config{Backend: BackendNeo4j}, wantErr: true},
		{name: "unknown backend", cfg: Config{Backend: "sqlite"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewGraphStore(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}
