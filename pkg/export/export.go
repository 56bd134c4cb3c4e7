// Package export writes graph snapshots to Parquet files for offline
// analysis.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

const pageSize = 1000

// ParquetGraphWriter writes entities, relationships, and communities to
// Parquet files under a base directory.
type ParquetGraphWriter struct {
	baseDir string
}

// NewParquetGraphWriter creates a writer and its output directories.
func NewParquetGraphWriter(baseDir string) (*ParquetGraphWriter, error) {
	dirs := []string{"entities", "relationships", "communities"}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(baseDir, d), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return &ParquetGraphWriter{baseDir: baseDir}, nil
}

// ParquetEntity is the Parquet row schema for an entity.
type ParquetEntity struct {
	ID             string     `parquet:"id"`
	Name           string     `parquet:"name"`
	EntityType     string     `parquet:"entity_type"`
	NormalizedName string     `parquet:"normalized_name"`
	DocumentID     string     `parquet:"document_id"`
	ChunkID        string     `parquet:"chunk_id"`
	Confidence     float64    `parquet:"confidence"`
	Metadata       string     `parquet:"metadata"` // JSON string
	CreatedAt      *time.Time `parquet:"created_at"`
	UpdatedAt      *time.Time `parquet:"updated_at"`
}

// ParquetRelationship is the Parquet row schema for a relationship.
type ParquetRelationship struct {
	ID           string     `parquet:"id"`
	HeadID       string     `parquet:"head_id"`
	TailID       string     `parquet:"tail_id"`
	RelationType string     `parquet:"relation_type"`
	Confidence   float64    `parquet:"confidence"`
	SourceText   string     `parquet:"source_text"`
	Metadata     string     `parquet:"metadata"` // JSON string
	CreatedAt    *time.Time `parquet:"created_at"`
}

// ParquetCommunity is the Parquet row schema for a community.
type ParquetCommunity struct {
	ID               string     `parquet:"id"`
	Name             string     `parquet:"name"`
	Summary          string     `parquet:"summary"`
	SummaryEmbedding []float32  `parquet:"summary_embedding"`
	Size             int32      `parquet:"size"`
	Density          float64    `parquet:"density"`
	DocumentID       string     `parquet:"document_id"`
	Algorithm        string     `parquet:"algorithm"`
	Metadata         string     `parquet:"metadata"` // JSON string
	CreatedAt        *time.Time `parquet:"created_at"`
}

// WriteEntities writes a batch of entities into one file.
func (w *ParquetGraphWriter) WriteEntities(ctx context.Context, entities []*types.Entity) (string, error) {
	if len(entities) == 0 {
		return "", nil
	}

	rows := make([]ParquetEntity, 0, len(entities))
	for _, entity := range entities {
		metadataJSON, err := json.Marshal(entity.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal metadata: %w", err)
		}

		row := ParquetEntity{
			ID:             entity.ID,
			Name:           entity.Name,
			EntityType:     entity.EntityType,
			NormalizedName: entity.NormalizedName,
			DocumentID:     entity.DocumentID,
			ChunkID:        entity.ChunkID,
			Confidence:     entity.Confidence,
			Metadata:       string(metadataJSON),
		}
		if !entity.CreatedAt.IsZero() {
			row.CreatedAt = &entity.CreatedAt
		}
		if !entity.UpdatedAt.IsZero() {
			row.UpdatedAt = &entity.UpdatedAt
		}
		rows = append(rows, row)
	}

	path := filepath.Join(w.baseDir, "entities", fmt.Sprintf("entities_%d.parquet", time.Now().UnixNano()))
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("failed to write entities: %w", err)
	}
	return path, nil
}

// WriteRelationships writes a batch of relationships into one file.
func (w *ParquetGraphWriter) WriteRelationships(ctx context.Context, rels []*types.Relationship) (string, error) {
	if len(rels) == 0 {
		return "", nil
	}

	rows := make([]ParquetRelationship, 0, len(rels))
	for _, rel := range rels {
		metadataJSON, err := json.Marshal(rel.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal metadata: %w", err)
		}

		row := ParquetRelationship{
			ID:           rel.ID,
			HeadID:       rel.HeadID,
			TailID:       rel.TailID,
			RelationType: rel.RelationType,
			Confidence:   rel.Confidence,
			SourceText:   rel.SourceText,
			Metadata:     string(metadataJSON),
		}
		if !rel.CreatedAt.IsZero() {
			row.CreatedAt = &rel.CreatedAt
		}
		rows = append(rows, row)
	}

	path := filepath.Join(w.baseDir, "relationships", fmt.Sprintf("relationships_%d.parquet", time.Now().UnixNano()))
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("failed to write relationships: %w", err)
	}
	return path, nil
}

// WriteCommunities writes a batch of communities into one file.
func (w *ParquetGraphWriter) WriteCommunities(ctx context.Context, communities []*types.Community) (string, error) {
	if len(communities) == 0 {
		return "", nil
	}

	rows := make([]ParquetCommunity, 0, len(communities))
	for _, community := range communities {
		metadataJSON, err := json.Marshal(community.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal metadata: %w", err)
		}

		row := ParquetCommunity{
			ID:               community.ID,
			Name:             community.Name,
			Summary:          community.Summary,
			SummaryEmbedding: community.SummaryEmbedding,
			Size:             int32(community.Size),
			Density:          community.Density,
			DocumentID:       community.DocumentID,
			Algorithm:        community.Algorithm,
			Metadata:         string(metadataJSON),
		}
		if !community.CreatedAt.IsZero() {
			row.CreatedAt = &community.CreatedAt
		}
		rows = append(rows, row)
	}

	path := filepath.Join(w.baseDir, "communities", fmt.Sprintf("communities_%d.parquet", time.Now().UnixNano()))
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("failed to write communities: %w", err)
	}
	return path, nil
}

// Summary reports what an export wrote.
type Summary struct {
	Entities      int
	Relationships int
	Files         []string
}

// ExportGraph snapshots all entities and relationships in a scope. An empty
// scope exports the whole store.
func (w *ParquetGraphWriter) ExportGraph(ctx context.Context, st store.GraphStore, scope string) (*Summary, error) {
	summary := &Summary{}

	for offset := 0; ; offset += pageSize {
		page, err := st.ListEntities(ctx, scope, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list entities: %w", err)
		}
		if len(page) == 0 {
			break
		}
		path, err := w.WriteEntities(ctx, page)
		if err != nil {
			return nil, err
		}
		summary.Entities += len(page)
		summary.Files = append(summary.Files, path)
		if len(page) < pageSize {
			break
		}
	}

	for offset := 0; ; offset += pageSize {
		page, err := st.ListRelationships(ctx, scope, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list relationships: %w", err)
		}
		if len(page) == 0 {
			break
		}
		path, err := w.WriteRelationships(ctx, page)
		if err != nil {
			return nil, err
		}
		summary.Relationships += len(page)
		summary.Files = append(summary.Files, path)
		if len(page) < pageSize {
			break
		}
	}

	return summary, nil
}
