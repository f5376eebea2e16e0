package optimistic

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

// State tracks one mutation invocation through its lifecycle. Every
// invocation ends in exactly one of Committed or RolledBack.
type State int

const (
	StateIdle State = iota
	StatePending
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Invocation describes one speculative mutation.
type Invocation struct {
	// Keys are the cached views known to contain the target record. They are
	// snapshotted, speculatively patched, and restored verbatim on failure.
	Keys []viewcache.Key
	// Apply patches the cached value of one view. It must return the new
	// value without mutating the input and must not perform I/O.
	Apply func(key viewcache.Key, cached any) any
	// Persist executes the server-bound write. Once issued it always runs to
	// completion or explicit failure; the engine never cancels it.
	Persist func(ctx context.Context) error
	// FanOut lists every view that semantically depends on the mutated
	// record; each is marked stale after a successful persist.
	FanOut []viewcache.Key
}

// Result reports the terminal state of an invocation plus the error that
// caused a rollback, if any.
type Result struct {
	State State
	Err   error
}

// Engine applies Invocations against an injected view store under
// speculate/commit/rollback semantics. It is the sole writer of status
// transitions into the cache.
type Engine struct {
	store viewcache.Store
	log   *logrus.Logger
}

func NewEngine(store viewcache.Store, log *logrus.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Run is the single entry and exit point of the mutation state machine:
//
//	idle -> pending (speculative patch published) -> committed | rolled_back
//
// Snapshot, patch and publish happen synchronously before the persistence
// call, so no concurrent read observes a torn state.
func (e *Engine) Run(ctx context.Context, inv Invocation) Result {
	if inv.Persist == nil {
		return Result{State: StateIdle, Err: errors.New("optimistic: invocation has no persist step")}
	}

	// A refetch racing the mutation must not clobber the speculative patch.
	e.store.CancelRefetch(inv.Keys...)

	snapshot := e.store.Snapshot(inv.Keys)

	if inv.Apply != nil {
		for _, key := range inv.Keys {
			cached, ok := e.store.Get(key)
			if !ok {
				continue
			}
			e.store.Set(key, inv.Apply(key, cached))
		}
	}

	if err := inv.Persist(ctx); err != nil {
		e.store.Restore(snapshot, inv.Keys)
		if e.log != nil {
			e.log.WithError(err).WithField("views", len(inv.Keys)).
				Warn("optimistic: persistence failed, speculative patches rolled back")
		}
		return Result{State: StateRolledBack, Err: err}
	}

	e.store.MarkStale(inv.FanOut...)
	return Result{State: StateCommitted}
}
