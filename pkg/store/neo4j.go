package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/verkkograph/verkko/pkg/types"
)

// Neo4jStore implements GraphStore on a Neo4j database. Entities and
// communities are nodes, relationships are RELATES edges carrying the
// relation type as a property, memberships are MEMBER_OF edges and cached
// statistics are GraphStatistic nodes merged on (scope, name).
//
// Timestamps are stored as RFC 3339 strings and metadata maps as JSON
// strings, which keeps the property model to Neo4j primitives.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore creates a new Neo4j-backed store.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		client:   driver,
		database: database,
	}, nil
}

// Initialize creates the uniqueness constraints the write paths rely on.
func (n *Neo4jStore) Initialize(ctx context.Context) error {
	session := n.session(ctx)
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE",
		"CREATE CONSTRAINT community_id IF NOT EXISTS FOR (c:Community) REQUIRE c.id IS UNIQUE",
		"CREATE INDEX entity_type IF NOT EXISTS FOR (e:Entity) ON (e.entity_type)",
		"CREATE INDEX entity_document IF NOT EXISTS FOR (e:Entity) ON (e.document_id)",
	}
	for _, stmt := range constraints {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// Close shuts down the underlying driver.
func (n *Neo4jStore) Close() error {
	return n.client.Close(context.Background())
}

func (n *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
}

func (n *Neo4jStore) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*neo4j.Record), nil
}

func (n *Neo4jStore) write(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*neo4j.Record), nil
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func propTime(props map[string]any, key string) time.Time {
	if s, ok := props[key].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func propMetadata(props map[string]any, key string) (map[string]any, error) {
	s, ok := props[key].(string)
	if !ok || s == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return out, nil
}

func metadataString(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(raw), nil
}

func entityFromProps(props map[string]any) (*types.Entity, error) {
	metadata, err := propMetadata(props, "metadata")
	if err != nil {
		return nil, err
	}
	return &types.Entity{
		ID:             propString(props, "id"),
		Name:           propString(props, "name"),
		EntityType:     propString(props, "entity_type"),
		NormalizedName: propString(props, "normalized_name"),
		DocumentID:     propString(props, "document_id"),
		ChunkID:        propString(props, "chunk_id"),
		Confidence:     propFloat(props, "confidence"),
		Metadata:       metadata,
		CreatedAt:      propTime(props, "created_at"),
		UpdatedAt:      propTime(props, "updated_at"),
	}, nil
}

func relationshipFromProps(props map[string]any, headID, tailID string) (*types.Relationship, error) {
	metadata, err := propMetadata(props, "metadata")
	if err != nil {
		return nil, err
	}
	return &types.Relationship{
		ID:           propString(props, "id"),
		HeadID:       headID,
		TailID:       tailID,
		RelationType: propString(props, "relation_type"),
		Confidence:   propFloat(props, "confidence"),
		ChunkID:      propString(props, "chunk_id"),
		SourceText:   propString(props, "source_text"),
		Metadata:     metadata,
		CreatedAt:    propTime(props, "created_at"),
	}, nil
}

func nodeProps(record *neo4j.Record, key string) (map[string]any, bool) {
	value, found := record.Get(key)
	if !found {
		return nil, false
	}
	entity, ok := value.(neo4j.Node)
	if !ok {
		return nil, false
	}
	return entity.Props, true
}

func relProps(record *neo4j.Record, key string) (map[string]any, bool) {
	value, found := record.Get(key)
	if !found {
		return nil, false
	}
	rel, ok := value.(neo4j.Relationship)
	if !ok {
		return nil, false
	}
	return rel.Props, true
}

// PutEntity inserts or updates an entity node.
func (n *Neo4jStore) PutEntity(ctx context.Context, entity *types.Entity) error {
	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	if err := entity.ValidateForCreate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	if entity.NormalizedName == "" {
		entity.NormalizedName = types.NormalizeName(entity.Name)
	}
	metadata, err := metadataString(entity.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `
		MERGE (e:Entity {id: $id})
		ON CREATE SET e.created_at = $now
		SET e.name = $name,
			e.entity_type = $entity_type,
			e.normalized_name = $normalized_name,
			e.document_id = $document_id,
			e.chunk_id = $chunk_id,
			e.confidence = $confidence,
			e.metadata = $metadata,
			e.updated_at = $now
	`
	_, err = n.write(ctx, query, map[string]any{
		"id":              entity.ID,
		"name":            entity.Name,
		"entity_type":     entity.EntityType,
		"normalized_name": entity.NormalizedName,
		"document_id":     entity.DocumentID,
		"chunk_id":        entity.ChunkID,
		"confidence":      entity.Confidence,
		"metadata":        metadata,
		"now":             now,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

// GetEntity retrieves one entity by id.
func (n *Neo4jStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	records, err := n.read(ctx, "MATCH (e:Entity {id: $id}) RETURN e", map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	props, ok := nodeProps(records[0], "e")
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for entity %s", id)
	}
	return entityFromProps(props)
}

func entitiesFromRecords(records []*neo4j.Record, key string) ([]*types.Entity, error) {
	out := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		props, ok := nodeProps(record, key)
		if !ok {
			continue
		}
		e, err := entityFromProps(props)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GetEntities retrieves the entities for an id set, skipping missing ids.
func (n *Neo4jStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	records, err := n.read(ctx,
		"MATCH (e:Entity) WHERE e.id IN $ids RETURN e ORDER BY e.name, e.id",
		map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to get entities: %w", err)
	}
	return entitiesFromRecords(records, "e")
}

// ListEntities returns entities in scope ordered by name.
func (n *Neo4jStore) ListEntities(ctx context.Context, scope string, limit, offset int) ([]*types.Entity, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `
		MATCH (e:Entity)
		WHERE $scope = '' OR e.document_id = $scope
		RETURN e ORDER BY e.name, e.id
		SKIP $offset LIMIT $limit
	`
	records, err := n.read(ctx, query, map[string]any{
		"scope": scope, "offset": offset, "limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entitiesFromRecords(records, "e")
}

// EntitiesByType returns all entities of one type ordered by name.
func (n *Neo4jStore) EntitiesByType(ctx context.Context, entityType string) ([]*types.Entity, error) {
	records, err := n.read(ctx,
		"MATCH (e:Entity {entity_type: $type}) RETURN e ORDER BY e.name, e.id",
		map[string]any{"type": entityType})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities by type: %w", err)
	}
	return entitiesFromRecords(records, "e")
}

// CountEntities counts entities in scope.
func (n *Neo4jStore) CountEntities(ctx context.Context, scope string) (int, error) {
	records, err := n.read(ctx,
		"MATCH (e:Entity) WHERE $scope = '' OR e.document_id = $scope RETURN count(e) AS c",
		map[string]any{"scope": scope})
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	value, _ := records[0].Get("c")
	count, _ := value.(int64)
	return int(count), nil
}

// DeleteEntity removes an entity and every edge attached to it.
func (n *Neo4jStore) DeleteEntity(ctx context.Context, id string) error {
	records, err := n.write(ctx,
		"MATCH (e:Entity {id: $id}) DETACH DELETE e RETURN count(e) AS c",
		map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if len(records) > 0 {
		if value, _ := records[0].Get("c"); value == int64(0) {
			return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
		}
	}
	return nil
}

// PutRelationship inserts a RELATES edge, enforcing endpoint existence and
// triple uniqueness.
func (n *Neo4jStore) PutRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if err := rel.ValidateForCreate(); err != nil {
		if errors.Is(err, types.ErrSelfLoop) {
			return fmt.Errorf("%w: %w", types.ErrConstraintViolation, err)
		}
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	metadata, err := metadataString(rel.Metadata)
	if err != nil {
		return err
	}

	query := `
		MATCH (h:Entity {id: $head_id}), (t:Entity {id: $tail_id})
		MERGE (h)-[r:RELATES {relation_type: $relation_type}]->(t)
		ON CREATE SET r.id = $id,
			r.confidence = $confidence,
			r.chunk_id = $chunk_id,
			r.source_text = $source_text,
			r.metadata = $metadata,
			r.created_at = $now,
			r.was_created = true
		RETURN r.id AS id, coalesce(r.was_created, false) AS created
	`
	records, err := n.write(ctx, query, map[string]any{
		"id":            rel.ID,
		"head_id":       rel.HeadID,
		"tail_id":       rel.TailID,
		"relation_type": rel.RelationType,
		"confidence":    rel.Confidence,
		"chunk_id":      rel.ChunkID,
		"source_text":   rel.SourceText,
		"metadata":      metadata,
		"now":           time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: one of entities %s, %s does not exist",
			types.ErrConstraintViolation, rel.HeadID, rel.TailID)
	}
	if idValue, _ := records[0].Get("id"); idValue != rel.ID {
		return fmt.Errorf("%w: duplicate relationship (%s, %s, %s)",
			types.ErrConstraintViolation, rel.HeadID, rel.TailID, rel.RelationType)
	}
	// Drop the creation marker; it only disambiguates MERGE matches.
	_, err = n.write(ctx,
		"MATCH ()-[r:RELATES {id: $id}]->() REMOVE r.was_created",
		map[string]any{"id": rel.ID})
	if err != nil {
		return fmt.Errorf("failed to finalize relationship: %w", err)
	}
	return nil
}

func relationshipsFromRecords(records []*neo4j.Record) ([]*types.Relationship, error) {
	out := make([]*types.Relationship, 0, len(records))
	for _, record := range records {
		props, ok := relProps(record, "r")
		if !ok {
			continue
		}
		headValue, _ := record.Get("head_id")
		tailValue, _ := record.Get("tail_id")
		headID, _ := headValue.(string)
		tailID, _ := tailValue.(string)
		r, err := relationshipFromProps(props, headID, tailID)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

const relationshipReturn = "RETURN r, h.id AS head_id, t.id AS tail_id"

// GetRelationship retrieves one relationship by id.
func (n *Neo4jStore) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	records, err := n.read(ctx,
		"MATCH (h:Entity)-[r:RELATES {id: $id}]->(t:Entity) "+relationshipReturn,
		map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	rels, err := relationshipsFromRecords(records)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	return rels[0], nil
}

// RelationshipsFor returns every relationship with entityID as an endpoint.
func (n *Neo4jStore) RelationshipsFor(ctx context.Context, entityID string) ([]*types.Relationship, error) {
	query := `
		MATCH (h:Entity)-[r:RELATES]->(t:Entity)
		WHERE h.id = $id OR t.id = $id
		` + relationshipReturn + `
		ORDER BY r.confidence DESC, r.id
	`
	records, err := n.read(ctx, query, map[string]any{"id": entityID})
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return relationshipsFromRecords(records)
}

// ListRelationships returns relationships in scope ordered by descending
// confidence. Scope is resolved through the head entity's document.
func (n *Neo4jStore) ListRelationships(ctx context.Context, scope string, limit, offset int) ([]*types.Relationship, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `
		MATCH (h:Entity)-[r:RELATES]->(t:Entity)
		WHERE $scope = '' OR h.document_id = $scope
		` + relationshipReturn + `
		ORDER BY r.confidence DESC, r.id
		SKIP $offset LIMIT $limit
	`
	records, err := n.read(ctx, query, map[string]any{
		"scope": scope, "offset": offset, "limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return relationshipsFromRecords(records)
}

// RelationshipsByType returns all relationships of one relation type.
func (n *Neo4jStore) RelationshipsByType(ctx context.Context, relationType string) ([]*types.Relationship, error) {
	query := `
		MATCH (h:Entity)-[r:RELATES {relation_type: $type}]->(t:Entity)
		` + relationshipReturn + `
		ORDER BY r.confidence DESC, r.id
	`
	records, err := n.read(ctx, query, map[string]any{"type": relationType})
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships by type: %w", err)
	}
	return relationshipsFromRecords(records)
}

// CountRelationships counts relationships in scope.
func (n *Neo4jStore) CountRelationships(ctx context.Context, scope string) (int, error) {
	query := `
		MATCH (h:Entity)-[r:RELATES]->()
		WHERE $scope = '' OR h.document_id = $scope
		RETURN count(r) AS c
	`
	records, err := n.read(ctx, query, map[string]any{"scope": scope})
	if err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	value, _ := records[0].Get("c")
	count, _ := value.(int64)
	return int(count), nil
}

// DegreeCounts returns total degree per entity for every entity in scope,
// including zero-degree entities.
func (n *Neo4jStore) DegreeCounts(ctx context.Context, scope string) (map[string]int, error) {
	query := `
		MATCH (e:Entity)
		WHERE $scope = '' OR e.document_id = $scope
		OPTIONAL MATCH (e)-[r:RELATES]-()
		RETURN e.id AS id, count(r) AS degree
	`
	records, err := n.read(ctx, query, map[string]any{"scope": scope})
	if err != nil {
		return nil, fmt.Errorf("failed to query degrees: %w", err)
	}

	out := make(map[string]int, len(records))
	for _, record := range records {
		idValue, _ := record.Get("id")
		degreeValue, _ := record.Get("degree")
		id, _ := idValue.(string)
		degree, _ := degreeValue.(int64)
		out[id] = int(degree)
	}
	return out, nil
}

// DeleteRelationship removes a single relationship edge.
func (n *Neo4jStore) DeleteRelationship(ctx context.Context, id string) error {
	records, err := n.write(ctx,
		"MATCH ()-[r:RELATES {id: $id}]->() DELETE r RETURN count(r) AS c",
		map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	if len(records) > 0 {
		if value, _ := records[0].Get("c"); value == int64(0) {
			return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
		}
	}
	return nil
}

// PutCommunity inserts or updates a community node.
func (n *Neo4jStore) PutCommunity(ctx context.Context, community *types.Community) error {
	if community.ID == "" {
		community.ID = uuid.New().String()
	}
	if err := community.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	metadata, err := metadataString(community.Metadata)
	if err != nil {
		return err
	}
	var embedding string
	if community.SummaryEmbedding != nil {
		raw, merr := json.Marshal(community.SummaryEmbedding)
		if merr != nil {
			return fmt.Errorf("failed to marshal summary embedding: %w", merr)
		}
		embedding = string(raw)
	}

	query := `
		MERGE (c:Community {id: $id})
		ON CREATE SET c.created_at = $now
		SET c.name = $name,
			c.summary = $summary,
			c.summary_embedding = $embedding,
			c.size = $size,
			c.density = $density,
			c.document_id = $document_id,
			c.algorithm = $algorithm,
			c.metadata = $metadata
	`
	_, err = n.write(ctx, query, map[string]any{
		"id":          community.ID,
		"name":        community.Name,
		"summary":     community.Summary,
		"embedding":   embedding,
		"size":        community.Size,
		"density":     community.Density,
		"document_id": community.DocumentID,
		"algorithm":   community.Algorithm,
		"metadata":    metadata,
		"now":         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert community: %w", err)
	}
	return nil
}

func communityFromProps(props map[string]any) (*types.Community, error) {
	metadata, err := propMetadata(props, "metadata")
	if err != nil {
		return nil, err
	}
	c := &types.Community{
		ID:         propString(props, "id"),
		Name:       propString(props, "name"),
		Summary:    propString(props, "summary"),
		Size:       int(propFloat(props, "size")),
		Density:    propFloat(props, "density"),
		DocumentID: propString(props, "document_id"),
		Algorithm:  propString(props, "algorithm"),
		Metadata:   metadata,
		CreatedAt:  propTime(props, "created_at"),
	}
	if s := propString(props, "summary_embedding"); s != "" {
		if err := json.Unmarshal([]byte(s), &c.SummaryEmbedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary embedding: %w", err)
		}
	}
	return c, nil
}

// GetCommunity retrieves one community by id.
func (n *Neo4jStore) GetCommunity(ctx context.Context, id string) (*types.Community, error) {
	records, err := n.read(ctx, "MATCH (c:Community {id: $id}) RETURN c", map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("community %s: %w", id, types.ErrNotFound)
	}
	props, ok := nodeProps(records[0], "c")
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for community %s", id)
	}
	return communityFromProps(props)
}

// PutMembership records an (entity, community) membership edge.
func (n *Neo4jStore) PutMembership(ctx context.Context, member *types.CommunityMember) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	query := `
		MATCH (e:Entity {id: $entity_id}), (c:Community {id: $community_id})
		MERGE (e)-[m:MEMBER_OF]->(c)
		SET m.strength = $strength
		RETURN m
	`
	records, err := n.write(ctx, query, map[string]any{
		"entity_id":    member.EntityID,
		"community_id": member.CommunityID,
		"strength":     member.Strength,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: entity %s or community %s does not exist",
			types.ErrConstraintViolation, member.EntityID, member.CommunityID)
	}
	return nil
}

// CommunitiesForEntities returns every community with at least one member in
// the id set.
func (n *Neo4jStore) CommunitiesForEntities(ctx context.Context, entityIDs []string) ([]*types.Community, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	query := `
		MATCH (e:Entity)-[:MEMBER_OF]->(c:Community)
		WHERE e.id IN $ids
		RETURN DISTINCT c
	`
	records, err := n.read(ctx, query, map[string]any{"ids": entityIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to query communities: %w", err)
	}

	out := make([]*types.Community, 0, len(records))
	for _, record := range records {
		props, ok := nodeProps(record, "c")
		if !ok {
			continue
		}
		c, err := communityFromProps(props)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CommunityMembers returns the memberships of one community.
func (n *Neo4jStore) CommunityMembers(ctx context.Context, communityID string) ([]*types.CommunityMember, error) {
	query := `
		MATCH (e:Entity)-[m:MEMBER_OF]->(c:Community {id: $id})
		RETURN e.id AS entity_id, m.strength AS strength
	`
	records, err := n.read(ctx, query, map[string]any{"id": communityID})
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}

	out := make([]*types.CommunityMember, 0, len(records))
	for _, record := range records {
		entityValue, _ := record.Get("entity_id")
		strengthValue, _ := record.Get("strength")
		entityID, _ := entityValue.(string)
		strength, _ := strengthValue.(float64)
		out = append(out, &types.CommunityMember{
			EntityID:    entityID,
			CommunityID: communityID,
			Strength:    strength,
		})
	}
	return out, nil
}

// UpsertStatistic atomically replaces the cached row for (scope, name). MERGE
// serializes concurrent writers on the node key and the last write wins.
func (n *Neo4jStore) UpsertStatistic(ctx context.Context, stat *types.GraphStatistic) error {
	if stat.Name == "" {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyName)
	}
	computedAt := stat.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}
	query := `
		MERGE (s:GraphStatistic {scope: $scope, name: $name})
		SET s.value = $value, s.computed_at = $computed_at
	`
	_, err := n.write(ctx, query, map[string]any{
		"scope":       stat.Scope,
		"name":        stat.Name,
		"value":       string(stat.Value),
		"computed_at": computedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert statistic: %w", err)
	}
	return nil
}

// GetStatistic retrieves a cached row for (scope, name).
func (n *Neo4jStore) GetStatistic(ctx context.Context, scope, name string) (*types.GraphStatistic, error) {
	records, err := n.read(ctx,
		"MATCH (s:GraphStatistic {scope: $scope, name: $name}) RETURN s",
		map[string]any{"scope": scope, "name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to get statistic: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("statistic (%s, %s): %w", scope, name, types.ErrNotFound)
	}
	props, ok := nodeProps(records[0], "s")
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for statistic (%s, %s)", scope, name)
	}
	return &types.GraphStatistic{
		Scope:      propString(props, "scope"),
		Name:       propString(props, "name"),
		Value:      json.RawMessage(propString(props, "value")),
		ComputedAt: propTime(props, "computed_at"),
	}, nil
}
