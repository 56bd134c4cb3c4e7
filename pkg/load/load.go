// Package load bulk-loads already-extracted graph rows from YAML fixture
// files. Entities are deduplicated by (normalized name, entity type),
// relationships reference entities by name, and duplicate triples or self
// loops are skipped rather than failing the batch.
package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

// Fixture is the YAML document shape.
type Fixture struct {
	Entities      []EntityRow       `yaml:"entities"`
	Relationships []RelationshipRow `yaml:"relationships"`
	Communities   []CommunityRow    `yaml:"communities"`
}

// EntityRow is one entity in a fixture.
type EntityRow struct {
	Name       string  `yaml:"name"`
	EntityType string  `yaml:"entity_type"`
	DocumentID string  `yaml:"document_id"`
	ChunkID    string  `yaml:"chunk_id"`
	Confidence float64 `yaml:"confidence"`
}

// RelationshipRow is one relationship in a fixture; endpoints are entity
// names, resolved against the fixture's entities.
type RelationshipRow struct {
	Head         string  `yaml:"head"`
	Tail         string  `yaml:"tail"`
	RelationType string  `yaml:"relation_type"`
	Confidence   float64 `yaml:"confidence"`
	SourceText   string  `yaml:"source_text"`
}

// CommunityRow is one community in a fixture; members are entity names.
type CommunityRow struct {
	Name    string   `yaml:"name"`
	Summary string   `yaml:"summary"`
	Members []string `yaml:"members"`
}

// Result summarizes a load.
type Result struct {
	Entities             int
	Relationships        int
	Communities          int
	SkippedEntities      int
	SkippedRelationships int
}

// Loader writes fixtures into a graph store.
type Loader struct {
	store store.GraphStore
	log   *slog.Logger
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default().
func NewLoader(st store.GraphStore, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{store: st, log: log}
}

// LoadFile loads one YAML fixture file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load reads a YAML fixture and writes its rows.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Result, error) {
	var fixture Fixture
	if err := yaml.NewDecoder(r).Decode(&fixture); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	result := &Result{}

	// First occurrence of a (normalized name, type) pair wins; later rows
	// with the same key reuse its id.
	byKey := make(map[string]string)
	byName := make(map[string]string)
	for _, row := range fixture.Entities {
		key := types.NormalizeName(row.Name) + "|" + row.EntityType
		if _, ok := byKey[key]; ok {
			result.SkippedEntities++
			continue
		}
		entity := &types.Entity{
			Name:       row.Name,
			EntityType: row.EntityType,
			DocumentID: row.DocumentID,
			ChunkID:    row.ChunkID,
			Confidence: row.Confidence,
		}
		if entity.Confidence == 0 {
			entity.Confidence = 1
		}
		if err := l.store.PutEntity(ctx, entity); err != nil {
			return nil, fmt.Errorf("failed to store entity %q: %w", row.Name, err)
		}
		byKey[key] = entity.ID
		if _, ok := byName[types.NormalizeName(row.Name)]; !ok {
			byName[types.NormalizeName(row.Name)] = entity.ID
		}
		result.Entities++
	}

	for _, row := range fixture.Relationships {
		headID, ok := byName[types.NormalizeName(row.Head)]
		if !ok {
			l.log.Warn("relationship references unknown entity", "name", row.Head)
			result.SkippedRelationships++
			continue
		}
		tailID, ok := byName[types.NormalizeName(row.Tail)]
		if !ok {
			l.log.Warn("relationship references unknown entity", "name", row.Tail)
			result.SkippedRelationships++
			continue
		}

		rel := &types.Relationship{
			HeadID:       headID,
			TailID:       tailID,
			RelationType: row.RelationType,
			Confidence:   row.Confidence,
			SourceText:   row.SourceText,
		}
		if rel.Confidence == 0 {
			rel.Confidence = 1
		}
		err := l.store.PutRelationship(ctx, rel)
		if err != nil {
			// Self loops and duplicate triples are fixture noise, not
			// batch failures.
			if errors.Is(err, types.ErrConstraintViolation) || errors.Is(err, types.ErrSelfLoop) {
				l.log.Debug("skipping relationship", "head", row.Head, "tail", row.Tail, "reason", err)
				result.SkippedRelationships++
				continue
			}
			return nil, fmt.Errorf("failed to store relationship %s->%s: %w", row.Head, row.Tail, err)
		}
		result.Relationships++
	}

	for _, row := range fixture.Communities {
		community := &types.Community{
			Name:    row.Name,
			Summary: row.Summary,
			Size:    len(row.Members),
		}
		if err := l.store.PutCommunity(ctx, community); err != nil {
			return nil, fmt.Errorf("failed to store community %q: %w", row.Name, err)
		}
		for _, member := range row.Members {
			entityID, ok := byName[types.NormalizeName(member)]
			if !ok {
				l.log.Warn("community references unknown entity", "community", row.Name, "name", member)
				continue
			}
			err := l.store.PutMembership(ctx, &types.CommunityMember{
				EntityID:    entityID,
				CommunityID: community.ID,
				Strength:    1,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to store membership %s/%s: %w", row.Name, member, err)
			}
		}
		result.Communities++
	}

	l.log.Info("fixture loaded",
		"entities", result.Entities,
		"relationships", result.Relationships,
		"communities", result.Communities,
		"skipped_entities", result.SkippedEntities,
		"skipped_relationships", result.SkippedRelationships)
	return result, nil
}
