package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verkkograph/verkko/pkg/types"
)

// MemoryStore is an in-process GraphStore backed by maps. Reads return
// copies, so results stay stable even while writers populate the store
// concurrently; a query observes the state at the moment it acquired the
// read lock.
type MemoryStore struct {
	mu sync.RWMutex

	entities      map[string]*types.Entity
	relationships map[string]*types.Relationship
	triples       map[string]string   // head|tail|type -> relationship id
	adjacency     map[string][]string // entity id -> relationship ids
	communities   map[string]*types.Community
	byCommunity   map[string][]*types.CommunityMember
	byEntity      map[string][]*types.CommunityMember
	statistics    map[string]*types.GraphStatistic
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:      make(map[string]*types.Entity),
		relationships: make(map[string]*types.Relationship),
		triples:       make(map[string]string),
		adjacency:     make(map[string][]string),
		communities:   make(map[string]*types.Community),
		byCommunity:   make(map[string][]*types.CommunityMember),
		byEntity:      make(map[string][]*types.CommunityMember),
		statistics:    make(map[string]*types.GraphStatistic),
	}
}

// Initialize is a no-op for the memory backend.
func (s *MemoryStore) Initialize(ctx context.Context) error { return nil }

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }

func tripleKey(head, tail, relationType string) string {
	return head + "|" + tail + "|" + relationType
}

func statKey(scope, name string) string {
	return scope + "|" + name
}

func cloneEntity(e *types.Entity) *types.Entity {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

func cloneRelationship(r *types.Relationship) *types.Relationship {
	c := *r
	c.Metadata = maps.Clone(r.Metadata)
	return &c
}

func cloneCommunity(cm *types.Community) *types.Community {
	c := *cm
	c.Metadata = maps.Clone(cm.Metadata)
	c.SummaryEmbedding = append([]float32(nil), cm.SummaryEmbedding...)
	return &c
}

// PutEntity inserts or updates an entity row.
func (s *MemoryStore) PutEntity(ctx context.Context, entity *types.Entity) error {
	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	if err := entity.ValidateForCreate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	if entity.NormalizedName == "" {
		entity.NormalizedName = types.NormalizeName(entity.Name)
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entities[entity.ID]; ok {
		entity.CreatedAt = existing.CreatedAt
	} else if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	s.entities[entity.ID] = cloneEntity(entity)
	return nil
}

// GetEntity retrieves one entity by id.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	return cloneEntity(e), nil
}

// GetEntities retrieves the entities for an id set, skipping missing ids.
func (s *MemoryStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			out = append(out, cloneEntity(e))
		}
	}
	return out, nil
}

// ListEntities returns entities in scope ordered by name.
func (s *MemoryStore) ListEntities(ctx context.Context, scope string, limit, offset int) ([]*types.Entity, error) {
	s.mu.RLock()
	var out []*types.Entity
	for _, e := range s.entities {
		if scope != "" && e.DocumentID != scope {
			continue
		}
		out = append(out, cloneEntity(e))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, limit, offset), nil
}

// EntitiesByType returns all entities of one type ordered by name.
func (s *MemoryStore) EntitiesByType(ctx context.Context, entityType string) ([]*types.Entity, error) {
	s.mu.RLock()
	var out []*types.Entity
	for _, e := range s.entities {
		if e.EntityType == entityType {
			out = append(out, cloneEntity(e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountEntities counts entities in scope.
func (s *MemoryStore) CountEntities(ctx context.Context, scope string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == "" {
		return len(s.entities), nil
	}
	n := 0
	for _, e := range s.entities {
		if e.DocumentID == scope {
			n++
		}
	}
	return n, nil
}

// DeleteEntity removes an entity, cascading to relationships and community
// memberships that reference it.
func (s *MemoryStore) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	delete(s.entities, id)

	for _, relID := range s.adjacency[id] {
		s.dropRelationshipLocked(relID)
	}
	delete(s.adjacency, id)

	for _, m := range s.byEntity[id] {
		s.byCommunity[m.CommunityID] = removeMember(s.byCommunity[m.CommunityID], id, m.CommunityID)
	}
	delete(s.byEntity, id)
	return nil
}

// PutRelationship inserts a relationship row, enforcing the no-self-loop and
// unique-triple invariants.
func (s *MemoryStore) PutRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if err := rel.ValidateForCreate(); err != nil {
		if errors.Is(err, types.ErrSelfLoop) {
			return fmt.Errorf("%w: %w", types.ErrConstraintViolation, err)
		}
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[rel.HeadID]; !ok {
		return fmt.Errorf("%w: head entity %s does not exist", types.ErrConstraintViolation, rel.HeadID)
	}
	if _, ok := s.entities[rel.TailID]; !ok {
		return fmt.Errorf("%w: tail entity %s does not exist", types.ErrConstraintViolation, rel.TailID)
	}

	key := tripleKey(rel.HeadID, rel.TailID, rel.RelationType)
	if existingID, ok := s.triples[key]; ok && existingID != rel.ID {
		return fmt.Errorf("%w: duplicate relationship (%s, %s, %s)",
			types.ErrConstraintViolation, rel.HeadID, rel.TailID, rel.RelationType)
	}

	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	if _, ok := s.relationships[rel.ID]; !ok {
		s.adjacency[rel.HeadID] = append(s.adjacency[rel.HeadID], rel.ID)
		s.adjacency[rel.TailID] = append(s.adjacency[rel.TailID], rel.ID)
	}
	s.relationships[rel.ID] = cloneRelationship(rel)
	s.triples[key] = rel.ID
	return nil
}

// GetRelationship retrieves one relationship by id.
func (s *MemoryStore) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	return cloneRelationship(r), nil
}

// RelationshipsFor returns every relationship with entityID as an endpoint.
func (s *MemoryStore) RelationshipsFor(ctx context.Context, entityID string) ([]*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relIDs := s.adjacency[entityID]
	out := make([]*types.Relationship, 0, len(relIDs))
	for _, relID := range relIDs {
		if r, ok := s.relationships[relID]; ok {
			out = append(out, cloneRelationship(r))
		}
	}
	return out, nil
}

// ListRelationships returns relationships in scope ordered by descending
// confidence.
func (s *MemoryStore) ListRelationships(ctx context.Context, scope string, limit, offset int) ([]*types.Relationship, error) {
	s.mu.RLock()
	var out []*types.Relationship
	for _, r := range s.relationships {
		if scope != "" && !s.headInScopeLocked(r, scope) {
			continue
		}
		out = append(out, cloneRelationship(r))
	}
	s.mu.RUnlock()

	sortByConfidence(out)
	return paginate(out, limit, offset), nil
}

// RelationshipsByType returns all relationships of one relation type ordered
// by descending confidence.
func (s *MemoryStore) RelationshipsByType(ctx context.Context, relationType string) ([]*types.Relationship, error) {
	s.mu.RLock()
	var out []*types.Relationship
	for _, r := range s.relationships {
		if r.RelationType == relationType {
			out = append(out, cloneRelationship(r))
		}
	}
	s.mu.RUnlock()

	sortByConfidence(out)
	return out, nil
}

// CountRelationships counts relationships in scope.
func (s *MemoryStore) CountRelationships(ctx context.Context, scope string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == "" {
		return len(s.relationships), nil
	}
	n := 0
	for _, r := range s.relationships {
		if s.headInScopeLocked(r, scope) {
			n++
		}
	}
	return n, nil
}

// DegreeCounts returns total degree per entity for every entity in scope.
func (s *MemoryStore) DegreeCounts(ctx context.Context, scope string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for id, e := range s.entities {
		if scope != "" && e.DocumentID != scope {
			continue
		}
		out[id] = len(s.adjacency[id])
	}
	return out, nil
}

// DeleteRelationship removes a single relationship row.
func (s *MemoryStore) DeleteRelationship(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relationships[id]; !ok {
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	s.dropRelationshipLocked(id)
	return nil
}

// PutCommunity inserts or updates a community row.
func (s *MemoryStore) PutCommunity(ctx context.Context, community *types.Community) error {
	if community.ID == "" {
		community.ID = uuid.New().String()
	}
	if err := community.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if community.CreatedAt.IsZero() {
		community.CreatedAt = time.Now().UTC()
	}
	s.communities[community.ID] = cloneCommunity(community)
	return nil
}

// GetCommunity retrieves one community by id.
func (s *MemoryStore) GetCommunity(ctx context.Context, id string) (*types.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.communities[id]
	if !ok {
		return nil, fmt.Errorf("community %s: %w", id, types.ErrNotFound)
	}
	return cloneCommunity(c), nil
}

// PutMembership records an (entity, community) membership.
func (s *MemoryStore) PutMembership(ctx context.Context, member *types.CommunityMember) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[member.EntityID]; !ok {
		return fmt.Errorf("%w: entity %s does not exist", types.ErrConstraintViolation, member.EntityID)
	}
	if _, ok := s.communities[member.CommunityID]; !ok {
		return fmt.Errorf("%w: community %s does not exist", types.ErrConstraintViolation, member.CommunityID)
	}

	m := *member
	s.byCommunity[m.CommunityID] = removeMember(s.byCommunity[m.CommunityID], m.EntityID, m.CommunityID)
	s.byEntity[m.EntityID] = removeMember(s.byEntity[m.EntityID], m.EntityID, m.CommunityID)
	s.byCommunity[m.CommunityID] = append(s.byCommunity[m.CommunityID], &m)
	s.byEntity[m.EntityID] = append(s.byEntity[m.EntityID], &m)
	return nil
}

// CommunitiesForEntities returns every community with at least one member in
// the id set.
func (s *MemoryStore) CommunitiesForEntities(ctx context.Context, entityIDs []string) ([]*types.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []*types.Community
	for _, entityID := range entityIDs {
		for _, m := range s.byEntity[entityID] {
			if seen[m.CommunityID] {
				continue
			}
			seen[m.CommunityID] = true
			if c, ok := s.communities[m.CommunityID]; ok {
				out = append(out, cloneCommunity(c))
			}
		}
	}
	return out, nil
}

// CommunityMembers returns the memberships of one community.
func (s *MemoryStore) CommunityMembers(ctx context.Context, communityID string) ([]*types.CommunityMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.byCommunity[communityID]
	out := make([]*types.CommunityMember, 0, len(members))
	for _, m := range members {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

// UpsertStatistic atomically replaces the cached row for (scope, name).
func (s *MemoryStore) UpsertStatistic(ctx context.Context, stat *types.GraphStatistic) error {
	if stat.Name == "" {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *stat
	c.Value = append([]byte(nil), stat.Value...)
	s.statistics[statKey(stat.Scope, stat.Name)] = &c
	return nil
}

// GetStatistic retrieves a cached row for (scope, name).
func (s *MemoryStore) GetStatistic(ctx context.Context, scope, name string) (*types.GraphStatistic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statistics[statKey(scope, name)]
	if !ok {
		return nil, fmt.Errorf("statistic (%s, %s): %w", scope, name, types.ErrNotFound)
	}
	c := *st
	c.Value = append([]byte(nil), st.Value...)
	return &c, nil
}

// dropRelationshipLocked removes a relationship and its index entries.
// Caller must hold the write lock.
func (s *MemoryStore) dropRelationshipLocked(relID string) {
	r, ok := s.relationships[relID]
	if !ok {
		return
	}
	delete(s.relationships, relID)
	delete(s.triples, tripleKey(r.HeadID, r.TailID, r.RelationType))
	s.adjacency[r.HeadID] = removeString(s.adjacency[r.HeadID], relID)
	s.adjacency[r.TailID] = removeString(s.adjacency[r.TailID], relID)
}

func (s *MemoryStore) headInScopeLocked(r *types.Relationship, scope string) bool {
	head, ok := s.entities[r.HeadID]
	return ok && head.DocumentID == scope
}

func sortByConfidence(rels []*types.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Confidence != rels[j].Confidence {
			return rels[i].Confidence > rels[j].Confidence
		}
		return rels[i].ID < rels[j].ID
	})
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func removeMember(list []*types.CommunityMember, entityID, communityID string) []*types.CommunityMember {
	out := list[:0]
	for _, m := range list {
		if m.EntityID != entityID || m.CommunityID != communityID {
			out = append(out, m)
		}
	}
	return out
}
