package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/verkkograph/verkko/pkg/types"
)

// Key layout. Values are JSON-encoded rows; index keys carry the referenced
// row id as value.
//
//	ent/<id>                      entity row
//	rel/<id>                      relationship row
//	adj/<entityID>/<relID>        adjacency index
//	trp/<head>|<tail>|<type>      triple uniqueness index -> rel id
//	com/<id>                      community row
//	mbc/<communityID>/<entityID>  membership row (by community)
//	mbe/<entityID>/<communityID>  membership reverse index
//	sta/<scope>|<name>            statistic row
const (
	prefixEntity       = "ent/"
	prefixRelationship = "rel/"
	prefixAdjacency    = "adj/"
	prefixTriple       = "trp/"
	prefixCommunity    = "com/"
	prefixMemberByCom  = "mbc/"
	prefixMemberByEnt  = "mbe/"
	prefixStatistic    = "sta/"
)

// BadgerStore is an embedded persistent GraphStore on BadgerDB. Each read
// runs in its own transaction, which gives the point-in-time snapshot the
// engine relies on.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// Initialize is a no-op; badger needs no schema.
func (s *BadgerStore) Initialize(ctx context.Context) error { return nil }

// Close closes the underlying database.
func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func (s *BadgerStore) setJSON(txn *badger.Txn, key string, row any) error {
	val, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), val)
}

// PutEntity inserts or updates an entity row.
func (s *BadgerStore) PutEntity(ctx context.Context, entity *types.Entity) error {
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
	return s.db.Update(func(txn *badger.Txn) error {
		var existing types.Entity
		err := s.getJSON(txn, prefixEntity+entity.ID, &existing)
		switch {
		case err == nil:
			entity.CreatedAt = existing.CreatedAt
		case errors.Is(err, types.ErrNotFound):
			if entity.CreatedAt.IsZero() {
				entity.CreatedAt = now
			}
		default:
			return err
		}
		entity.UpdatedAt = now
		return s.setJSON(txn, prefixEntity+entity.ID, entity)
	})
}

// GetEntity retrieves one entity by id.
func (s *BadgerStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	var e types.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		return s.getJSON(txn, prefixEntity+id, &e)
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
		}
		return nil, err
	}
	return &e, nil
}

// GetEntities retrieves the entities for an id set, skipping missing ids.
func (s *BadgerStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	out := make([]*types.Entity, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var e types.Entity
			err := s.getJSON(txn, prefixEntity+id, &e)
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) scanEntities(keep func(*types.Entity) bool) ([]*types.Entity, error) {
	var out []*types.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixEntity)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e types.Entity
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			if keep == nil || keep(&e) {
				out = append(out, &e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) scanRelationships(keep func(*types.Relationship) bool) ([]*types.Relationship, error) {
	var out []*types.Relationship
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixRelationship)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r types.Relationship
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			if keep == nil || keep(&r) {
				out = append(out, &r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEntities returns entities in scope ordered by name.
func (s *BadgerStore) ListEntities(ctx context.Context, scope string, limit, offset int) ([]*types.Entity, error) {
	out, err := s.scanEntities(func(e *types.Entity) bool {
		return scope == "" || e.DocumentID == scope
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, limit, offset), nil
}

// EntitiesByType returns all entities of one type ordered by name.
func (s *BadgerStore) EntitiesByType(ctx context.Context, entityType string) ([]*types.Entity, error) {
	out, err := s.scanEntities(func(e *types.Entity) bool {
		return e.EntityType == entityType
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountEntities counts entities in scope.
func (s *BadgerStore) CountEntities(ctx context.Context, scope string) (int, error) {
	rows, err := s.scanEntities(func(e *types.Entity) bool {
		return scope == "" || e.DocumentID == scope
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// DeleteEntity removes an entity, cascading to relationships and community
// memberships that reference it.
func (s *BadgerStore) DeleteEntity(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(prefixEntity + id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
			}
			return err
		}
		if err := txn.Delete([]byte(prefixEntity + id)); err != nil {
			return err
		}

		relIDs, err := adjacentRelIDs(txn, id)
		if err != nil {
			return err
		}
		for _, relID := range relIDs {
			if err := dropRelationshipTxn(txn, relID); err != nil {
				return err
			}
		}

		communityIDs, err := indexSuffixes(txn, prefixMemberByEnt+id+"/")
		if err != nil {
			return err
		}
		for _, communityID := range communityIDs {
			if err := txn.Delete([]byte(prefixMemberByEnt + id + "/" + communityID)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(prefixMemberByCom + communityID + "/" + id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutRelationship inserts a relationship row, enforcing the no-self-loop and
// unique-triple invariants.
func (s *BadgerStore) PutRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if err := rel.ValidateForCreate(); err != nil {
		if errors.Is(err, types.ErrSelfLoop) {
			return fmt.Errorf("%w: %w", types.ErrConstraintViolation, err)
		}
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, endpoint := range []string{rel.HeadID, rel.TailID} {
			if _, err := txn.Get([]byte(prefixEntity + endpoint)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: entity %s does not exist", types.ErrConstraintViolation, endpoint)
				}
				return err
			}
		}

		tripleK := prefixTriple + tripleKey(rel.HeadID, rel.TailID, rel.RelationType)
		if item, err := txn.Get([]byte(tripleK)); err == nil {
			var existingID string
			if err := item.Value(func(val []byte) error {
				existingID = string(val)
				return nil
			}); err != nil {
				return err
			}
			if existingID != rel.ID {
				return fmt.Errorf("%w: duplicate relationship (%s, %s, %s)",
					types.ErrConstraintViolation, rel.HeadID, rel.TailID, rel.RelationType)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := s.setJSON(txn, prefixRelationship+rel.ID, rel); err != nil {
			return err
		}
		if err := txn.Set([]byte(tripleK), []byte(rel.ID)); err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixAdjacency+rel.HeadID+"/"+rel.ID), []byte(rel.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(prefixAdjacency+rel.TailID+"/"+rel.ID), []byte(rel.ID))
	})
}

// GetRelationship retrieves one relationship by id.
func (s *BadgerStore) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	var r types.Relationship
	err := s.db.View(func(txn *badger.Txn) error {
		return s.getJSON(txn, prefixRelationship+id, &r)
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

// RelationshipsFor returns every relationship with entityID as an endpoint.
func (s *BadgerStore) RelationshipsFor(ctx context.Context, entityID string) ([]*types.Relationship, error) {
	var out []*types.Relationship
	err := s.db.View(func(txn *badger.Txn) error {
		relIDs, err := adjacentRelIDs(txn, entityID)
		if err != nil {
			return err
		}
		for _, relID := range relIDs {
			var r types.Relationship
			if err := s.getJSON(txn, prefixRelationship+relID, &r); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRelationships returns relationships in scope ordered by descending
// confidence.
func (s *BadgerStore) ListRelationships(ctx context.Context, scope string, limit, offset int) ([]*types.Relationship, error) {
	heads, err := s.headScope(scope)
	if err != nil {
		return nil, err
	}
	out, err := s.scanRelationships(func(r *types.Relationship) bool {
		return heads == nil || heads[r.HeadID]
	})
	if err != nil {
		return nil, err
	}
	sortByConfidence(out)
	return paginate(out, limit, offset), nil
}

// RelationshipsByType returns all relationships of one relation type ordered
// by descending confidence.
func (s *BadgerStore) RelationshipsByType(ctx context.Context, relationType string) ([]*types.Relationship, error) {
	out, err := s.scanRelationships(func(r *types.Relationship) bool {
		return r.RelationType == relationType
	})
	if err != nil {
		return nil, err
	}
	sortByConfidence(out)
	return out, nil
}

// CountRelationships counts relationships in scope.
func (s *BadgerStore) CountRelationships(ctx context.Context, scope string) (int, error) {
	heads, err := s.headScope(scope)
	if err != nil {
		return 0, err
	}
	rows, err := s.scanRelationships(func(r *types.Relationship) bool {
		return heads == nil || heads[r.HeadID]
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// DegreeCounts returns total degree per entity for every entity in scope.
func (s *BadgerStore) DegreeCounts(ctx context.Context, scope string) (map[string]int, error) {
	entities, err := s.scanEntities(func(e *types.Entity) bool {
		return scope == "" || e.DocumentID == scope
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(entities))
	err = s.db.View(func(txn *badger.Txn) error {
		for _, e := range entities {
			relIDs, err := adjacentRelIDs(txn, e.ID)
			if err != nil {
				return err
			}
			out[e.ID] = len(relIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRelationship removes a single relationship row.
func (s *BadgerStore) DeleteRelationship(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(prefixRelationship + id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
			}
			return err
		}
		return dropRelationshipTxn(txn, id)
	})
}

// PutCommunity inserts or updates a community row.
func (s *BadgerStore) PutCommunity(ctx context.Context, community *types.Community) error {
	if community.ID == "" {
		community.ID = uuid.New().String()
	}
	if err := community.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	if community.CreatedAt.IsZero() {
		community.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.setJSON(txn, prefixCommunity+community.ID, community)
	})
}

// GetCommunity retrieves one community by id.
func (s *BadgerStore) GetCommunity(ctx context.Context, id string) (*types.Community, error) {
	var c types.Community
	err := s.db.View(func(txn *badger.Txn) error {
		return s.getJSON(txn, prefixCommunity+id, &c)
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("community %s: %w", id, types.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// PutMembership records an (entity, community) membership.
func (s *BadgerStore) PutMembership(ctx context.Context, member *types.CommunityMember) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(prefixEntity + member.EntityID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: entity %s does not exist", types.ErrConstraintViolation, member.EntityID)
			}
			return err
		}
		if _, err := txn.Get([]byte(prefixCommunity + member.CommunityID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: community %s does not exist", types.ErrConstraintViolation, member.CommunityID)
			}
			return err
		}
		if err := s.setJSON(txn, prefixMemberByCom+member.CommunityID+"/"+member.EntityID, member); err != nil {
			return err
		}
		return txn.Set([]byte(prefixMemberByEnt+member.EntityID+"/"+member.CommunityID), []byte(member.CommunityID))
	})
}

// CommunitiesForEntities returns every community with at least one member in
// the id set.
func (s *BadgerStore) CommunitiesForEntities(ctx context.Context, entityIDs []string) ([]*types.Community, error) {
	var out []*types.Community
	err := s.db.View(func(txn *badger.Txn) error {
		seen := make(map[string]bool)
		for _, entityID := range entityIDs {
			communityIDs, err := indexSuffixes(txn, prefixMemberByEnt+entityID+"/")
			if err != nil {
				return err
			}
			for _, communityID := range communityIDs {
				if seen[communityID] {
					continue
				}
				seen[communityID] = true
				var c types.Community
				if err := s.getJSON(txn, prefixCommunity+communityID, &c); err != nil {
					if errors.Is(err, types.ErrNotFound) {
						continue
					}
					return err
				}
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CommunityMembers returns the memberships of one community.
func (s *BadgerStore) CommunityMembers(ctx context.Context, communityID string) ([]*types.CommunityMember, error) {
	var out []*types.CommunityMember
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixMemberByCom + communityID + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m types.CommunityMember
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertStatistic atomically replaces the cached row for (scope, name). The
// replacement happens in one transaction, so a concurrent reader observes
// either the previous or the new row, never a partial write.
func (s *BadgerStore) UpsertStatistic(ctx context.Context, stat *types.GraphStatistic) error {
	if stat.Name == "" {
		return fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyName)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.setJSON(txn, prefixStatistic+statKey(stat.Scope, stat.Name), stat)
	})
}

// GetStatistic retrieves a cached row for (scope, name).
func (s *BadgerStore) GetStatistic(ctx context.Context, scope, name string) (*types.GraphStatistic, error) {
	var st types.GraphStatistic
	err := s.db.View(func(txn *badger.Txn) error {
		return s.getJSON(txn, prefixStatistic+statKey(scope, name), &st)
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("statistic (%s, %s): %w", scope, name, types.ErrNotFound)
		}
		return nil, err
	}
	return &st, nil
}

// headScope resolves the head entity ids of a document scope; nil means
// unscoped.
func (s *BadgerStore) headScope(scope string) (map[string]bool, error) {
	if scope == "" {
		return nil, nil
	}
	entities, err := s.scanEntities(func(e *types.Entity) bool {
		return e.DocumentID == scope
	})
	if err != nil {
		return nil, err
	}
	heads := make(map[string]bool, len(entities))
	for _, e := range entities {
		heads[e.ID] = true
	}
	return heads, nil
}

func adjacentRelIDs(txn *badger.Txn, entityID string) ([]string, error) {
	return indexSuffixes(txn, prefixAdjacency+entityID+"/")
}

// indexSuffixes collects the key suffixes under an index prefix.
func indexSuffixes(txn *badger.Txn, prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		key := string(it.Item().Key())
		out = append(out, key[len(prefix):])
	}
	return out, nil
}

// dropRelationshipTxn removes a relationship row and its index entries.
func dropRelationshipTxn(txn *badger.Txn, relID string) error {
	item, err := txn.Get([]byte(prefixRelationship + relID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	var r types.Relationship
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return err
	}

	for _, key := range []string{
		prefixRelationship + relID,
		prefixTriple + tripleKey(r.HeadID, r.TailID, r.RelationType),
		prefixAdjacency + r.HeadID + "/" + relID,
		prefixAdjacency + r.TailID + "/" + relID,
	} {
		if err := txn.Delete([]byte(key)); err != nil {
			return err
		}
	}
	return nil
}
