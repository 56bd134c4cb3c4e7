package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/verkkograph/verkko/pkg/types"
)

// BreakerConfig holds circuit breaker settings for a wrapped store.
type BreakerConfig struct {
	// Enabled turns the breaker on. When false NewBreakerStore returns the
	// inner store unchanged.
	Enabled bool `mapstructure:"enabled"`

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32 `mapstructure:"max_requests"`

	// IntervalSeconds is the cyclic period for clearing counts while closed.
	IntervalSeconds int `mapstructure:"interval_seconds"`

	// TimeoutSeconds is how long the breaker stays open before probing.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// ReadyToTripRatio is the failure ratio that opens the breaker.
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		IntervalSeconds:  60,
		TimeoutSeconds:   30,
		ReadyToTripRatio: 0.6,
	}
}

// StateAlerter is notified when the breaker opens. pkg/alert provides an
// SMTP implementation.
type StateAlerter interface {
	Alert(subject, message string) error
}

// BreakerStore wraps a GraphStore with circuit breaking, shielding callers
// from a backend that has started failing hard. Expected errors from the
// store taxonomy count as successes; only infrastructure failures trip the
// breaker.
type BreakerStore struct {
	inner GraphStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner with a circuit breaker named name. If the
// breaker is disabled the inner store is returned as-is.
func NewBreakerStore(inner GraphStore, cfg BreakerConfig, name string) GraphStore {
	return NewBreakerStoreWithAlerter(inner, cfg, name, nil)
}

// NewBreakerStoreWithAlerter is NewBreakerStore with a notification hook
// fired when the breaker transitions to open.
func NewBreakerStoreWithAlerter(inner GraphStore, cfg BreakerConfig, name string, alerter StateAlerter) GraphStore {
	if !cfg.Enabled {
		return inner
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Business outcomes are not backend failures.
			return errors.Is(err, types.ErrNotFound) ||
				errors.Is(err, types.ErrInvalidArgument) ||
				errors.Is(err, types.ErrConstraintViolation)
		},
	}

	if alerter != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				subject := fmt.Sprintf("circuit breaker %s opened", name)
				message := fmt.Sprintf("breaker %s transitioned %s -> %s; store requests are being rejected", name, from, to)
				if err := alerter.Alert(subject, message); err != nil {
					slog.Warn("failed to send breaker alert", "breaker", name, "error", err)
				}
			}
		}
	}

	return &BreakerStore{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(st),
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (b *BreakerStore) run(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func (b *BreakerStore) Initialize(ctx context.Context) error {
	return b.run(func() error { return b.inner.Initialize(ctx) })
}

func (b *BreakerStore) Close() error { return b.inner.Close() }

func (b *BreakerStore) PutEntity(ctx context.Context, entity *types.Entity) error {
	return b.run(func() error { return b.inner.PutEntity(ctx, entity) })
}

func (b *BreakerStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	return execute(b.cb, func() (*types.Entity, error) { return b.inner.GetEntity(ctx, id) })
}

func (b *BreakerStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	return execute(b.cb, func() ([]*types.Entity, error) { return b.inner.GetEntities(ctx, ids) })
}

func (b *BreakerStore) ListEntities(ctx context.Context, scope string, limit, offset int) ([]*types.Entity, error) {
	return execute(b.cb, func() ([]*types.Entity, error) { return b.inner.ListEntities(ctx, scope, limit, offset) })
}

func (b *BreakerStore) EntitiesByType(ctx context.Context, entityType string) ([]*types.Entity, error) {
	return execute(b.cb, func() ([]*types.Entity, error) { return b.inner.EntitiesByType(ctx, entityType) })
}

func (b *BreakerStore) CountEntities(ctx context.Context, scope string) (int, error) {
	return execute(b.cb, func() (int, error) { return b.inner.CountEntities(ctx, scope) })
}

func (b *BreakerStore) DeleteEntity(ctx context.Context, id string) error {
	return b.run(func() error { return b.inner.DeleteEntity(ctx, id) })
}

func (b *BreakerStore) PutRelationship(ctx context.Context, rel *types.Relationship) error {
	return b.run(func() error { return b.inner.PutRelationship(ctx, rel) })
}

func (b *BreakerStore) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	return execute(b.cb, func() (*types.Relationship, error) { return b.inner.GetRelationship(ctx, id) })
}

func (b *BreakerStore) RelationshipsFor(ctx context.Context, entityID string) ([]*types.Relationship, error) {
	return execute(b.cb, func() ([]*types.Relationship, error) { return b.inner.RelationshipsFor(ctx, entityID) })
}

func (b *BreakerStore) ListRelationships(ctx context.Context, scope string, limit, offset int) ([]*types.Relationship, error) {
	return execute(b.cb, func() ([]*types.Relationship, error) { return b.inner.ListRelationships(ctx, scope, limit, offset) })
}

func (b *BreakerStore) RelationshipsByType(ctx context.Context, relationType string) ([]*types.Relationship, error) {
	return execute(b.cb, func() ([]*types.Relationship, error) { return b.inner.RelationshipsByType(ctx, relationType) })
}

func (b *BreakerStore) CountRelationships(ctx context.Context, scope string) (int, error) {
	return execute(b.cb, func() (int, error) { return b.inner.CountRelationships(ctx, scope) })
}

func (b *BreakerStore) DegreeCounts(ctx context.Context, scope string) (map[string]int, error) {
	return execute(b.cb, func() (map[string]int, error) { return b.inner.DegreeCounts(ctx, scope) })
}

func (b *BreakerStore) DeleteRelationship(ctx context.Context, id string) error {
	return b.run(func() error { return b.inner.DeleteRelationship(ctx, id) })
}

func (b *BreakerStore) PutCommunity(ctx context.Context, community *types.Community) error {
	return b.run(func() error { return b.inner.PutCommunity(ctx, community) })
}

func (b *BreakerStore) GetCommunity(ctx context.Context, id string) (*types.Community, error) {
	return execute(b.cb, func() (*types.Community, error) { return b.inner.GetCommunity(ctx, id) })
}

func (b *BreakerStore) PutMembership(ctx context.Context, member *types.CommunityMember) error {
	return b.run(func() error { return b.inner.PutMembership(ctx, member) })
}

func (b *BreakerStore) CommunitiesForEntities(ctx context.Context, entityIDs []string) ([]*types.Community, error) {
	return execute(b.cb, func() ([]*types.Community, error) { return b.inner.CommunitiesForEntities(ctx, entityIDs) })
}

func (b *BreakerStore) CommunityMembers(ctx context.Context, communityID string) ([]*types.CommunityMember, error) {
	return execute(b.cb, func() ([]*types.CommunityMember, error) { return b.inner.CommunityMembers(ctx, communityID) })
}

func (b *BreakerStore) UpsertStatistic(ctx context.Context, stat *types.GraphStatistic) error {
	return b.run(func() error { return b.inner.UpsertStatistic(ctx, stat) })
}

func (b *BreakerStore) GetStatistic(ctx context.Context, scope, name string) (*types.GraphStatistic, error) {
	return execute(b.cb, func() (*types.GraphStatistic, error) { return b.inner.GetStatistic(ctx, scope, name) })
}
