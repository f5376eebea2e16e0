package optimistic

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealdesk/pkg/logging"
	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

func newTestEngine() (*Engine, *viewcache.MemoryStore) {
	store := viewcache.NewMemoryStore()
	return NewEngine(store, logging.ConsoleLogger(logrus.PanicLevel)), store
}

func TestEngine_Commit(t *testing.T) {
	engine, store := newTestEngine()
	store.Set("list", []string{"pending"})
	store.Set("detail", "pending")
	store.Set("board", "derived")

	published := false
	result := engine.Run(context.Background(), Invocation{
		Keys: []viewcache.Key{"list", "detail"},
		Apply: func(key viewcache.Key, cached any) any {
			switch key {
			case "list":
				return []string{"approved"}
			case "detail":
				return "approved"
			}
			return cached
		},
		Persist: func(ctx context.Context) error {
			// The speculative patch is visible before the network call resolves.
			v, _ := store.Get("detail")
			published = v == "approved"
			return nil
		},
		FanOut: []viewcache.Key{"list", "detail", "board"},
	})

	require.NoError(t, result.Err)
	assert.Equal(t, StateCommitted, result.State)
	assert.True(t, published)

	// Dependent views are stale, values retained until refetched.
	assert.True(t, store.IsStale("board"))
	v, _ := store.Get("list")
	assert.Equal(t, []string{"approved"}, v)
}

func TestEngine_RollbackRestoresSnapshots(t *testing.T) {
	engine, store := newTestEngine()
	original := []string{"pending", "on_hold"}
	store.Set("list", original)
	store.Set("detail", "pending")

	result := engine.Run(context.Background(), Invocation{
		Keys: []viewcache.Key{"list", "detail"},
		Apply: func(key viewcache.Key, cached any) any {
			return "speculative"
		},
		Persist: func(ctx context.Context) error {
			return errors.New("network error")
		},
		FanOut: []viewcache.Key{"board"},
	})

	assert.Equal(t, StateRolledBack, result.State)
	require.Error(t, result.Err)

	v, ok := store.Get("list")
	require.True(t, ok)
	assert.Equal(t, original, v)
	v, _ = store.Get("detail")
	assert.Equal(t, "pending", v)

	// Fan-out views are not invalidated on failure.
	assert.False(t, store.IsStale("board"))
}

func TestEngine_RollbackOnlyRestoresOwnSnapshot(t *testing.T) {
	engine, store := newTestEngine()
	store.Set("detail", "pending")

	// First mutation commits; second targets the same record and fails. Its
	// rollback restores its own pre-mutation snapshot, which already holds
	// the first mutation's result.
	first := engine.Run(context.Background(), Invocation{
		Keys:    []viewcache.Key{"detail"},
		Apply:   func(viewcache.Key, any) any { return "approved" },
		Persist: func(ctx context.Context) error { return nil },
	})
	require.Equal(t, StateCommitted, first.State)

	second := engine.Run(context.Background(), Invocation{
		Keys:    []viewcache.Key{"detail"},
		Apply:   func(viewcache.Key, any) any { return "rejected" },
		Persist: func(ctx context.Context) error { return errors.New("rejected by store") },
	})
	assert.Equal(t, StateRolledBack, second.State)

	v, _ := store.Get("detail")
	assert.Equal(t, "approved", v)
}

func TestEngine_CancelsCompetingRefetch(t *testing.T) {
	engine, store := newTestEngine()
	store.Set("list", "cached")

	gen := store.BeginRefetch("list")

	result := engine.Run(context.Background(), Invocation{
		Keys:    []viewcache.Key{"list"},
		Apply:   func(viewcache.Key, any) any { return "speculative" },
		Persist: func(ctx context.Context) error { return nil },
	})
	require.Equal(t, StateCommitted, result.State)

	// The refetch that was in flight before the mutation must not land.
	assert.False(t, store.CompleteRefetch("list", gen, "stale"))
	v, _ := store.Get("list")
	assert.Equal(t, "speculative", v)
}

func TestEngine_MissingPersist(t *testing.T) {
	engine, _ := newTestEngine()
	result := engine.Run(context.Background(), Invocation{})
	assert.Equal(t, StateIdle, result.State)
	assert.Error(t, result.Err)
}

func TestRetryTransient(t *testing.T) {
	attempts := 0
	persist := RetryTransient(func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	}, 5*time.Second)

	require.NoError(t, persist(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestRetryTransient_PermanentErrorAbortsImmediately(t *testing.T) {
	attempts := 0
	persist := RetryTransient(func(ctx context.Context) error {
		attempts++
		return errors.New("constraint violation")
	}, 5*time.Second)

	assert.Error(t, persist(context.Background()))
	assert.Equal(t, 1, attempts)
}
