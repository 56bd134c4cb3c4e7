package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verkkograph/verkko/pkg/types"
)

// flakyStore fails every read with an infrastructure error once broken.
type flakyStore struct {
	GraphStore
	broken bool
}

func (f *flakyStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	if f.broken {
		return nil, fmt.Errorf("connection refused")
	}
	return f.GraphStore.GetEntity(ctx, id)
}

func TestBreakerStoreDisabledReturnsInner(t *testing.T) {
	inner := NewMemoryStore()
	wrapped := NewBreakerStore(inner, BreakerConfig{Enabled: false}, "test")
	assert.Same(t, GraphStore(inner), wrapped)
}

func TestBreakerStoreTripsOnInfrastructureFailures(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{GraphStore: NewMemoryStore(), broken: true}
	s := NewBreakerStore(flaky, DefaultBreakerConfig(), "test")

	for i := 0; i < 10; i++ {
		_, _ = s.GetEntity(ctx, "missing")
	}

	_, err := s.GetEntity(ctx, "missing")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

type recordingAlerter struct {
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestBreakerStoreAlertsWhenOpened(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{GraphStore: NewMemoryStore(), broken: true}
	alerter := &recordingAlerter{}
	s := NewBreakerStoreWithAlerter(flaky, DefaultBreakerConfig(), "test", alerter)

	for i := 0; i < 10; i++ {
		_, _ = s.GetEntity(ctx, "missing")
	}

	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "opened")
}

func TestBreakerStoreIgnoresExpectedErrors(t *testing.T) {
	ctx := context.Background()
	s := NewBreakerStore(NewMemoryStore(), DefaultBreakerConfig(), "test")
	require.NoError(t, s.Initialize(ctx))

	// NotFound is a valid outcome and must never open the breaker.
	for i := 0; i < 20; i++ {
		_, err := s.GetEntity(ctx, "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
	}

	require.NoError(t, s.PutEntity(ctx, &types.Entity{ID: "e1", Name: "Lyon", EntityType: "location"}))
	got, err := s.GetEntity(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Lyon", got.Name)
}
