package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/pkg/composables"
	"github.com/dealdesk/dealdesk/pkg/eventbus"
	"github.com/dealdesk/dealdesk/pkg/metrics"
	"github.com/dealdesk/dealdesk/pkg/optimistic"
	"github.com/dealdesk/dealdesk/pkg/serrors"
	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

// NotificationDispatcher delivers buyer-facing decision notices. Delivery is
// best-effort: a dispatch failure never affects the transition it announces.
type NotificationDispatcher interface {
	DispatchDecision(ctx context.Context, r *request.ConnectionRequest) error
}

// ViewBroadcaster fans view invalidations out to sibling processes.
// Invalidate also marks the local views stale; Publish leaves the local store
// alone for views the caller just patched in place.
type ViewBroadcaster interface {
	Invalidate(ctx context.Context, keys ...viewcache.Key)
	Publish(ctx context.Context, keys ...viewcache.Key)
}

// RequestService owns every read and mutation of connection requests. Reads
// populate the shared view store; each mutation runs through the optimistic
// engine against those same views, then fans its invalidations out to
// sibling processes.
type RequestService struct {
	repo        request.Repository
	assembler   *Assembler
	engine      *optimistic.Engine
	store       viewcache.Store
	broadcaster ViewBroadcaster
	publisher   eventbus.EventBus
	notifier    NotificationDispatcher
	log         *logrus.Logger
	now         func() time.Time
}

func NewRequestService(
	repo request.Repository,
	assembler *Assembler,
	engine *optimistic.Engine,
	store viewcache.Store,
	broadcaster ViewBroadcaster,
	publisher eventbus.EventBus,
	notifier NotificationDispatcher,
	log *logrus.Logger,
) *RequestService {
	return &RequestService{
		repo:        repo,
		assembler:   assembler,
		engine:      engine,
		store:       store,
		broadcaster: broadcaster,
		publisher:   publisher,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

func (s *RequestService) GetByID(ctx context.Context, id uuid.UUID) (*request.ConnectionRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RequestService) Find(ctx context.Context, params *request.FindParams) ([]*request.ConnectionRequest, error) {
	return s.repo.Find(ctx, params)
}

func (s *RequestService) Count(ctx context.Context, params *request.FindParams) (int64, error) {
	return s.repo.Count(ctx, params)
}

// ListDeals serves the full assembled collection from the list view,
// refetching it when absent or stale. Callers filter, sort and paginate the
// result in memory; the cached slice itself is never reordered.
func (s *RequestService) ListDeals(ctx context.Context) ([]*Deal, error) {
	if cached, ok := s.store.Get(ViewRequestsList); ok && !s.store.IsStale(ViewRequestsList) {
		if deals, ok := cached.([]*Deal); ok {
			return deals, nil
		}
	}

	gen := s.store.BeginRefetch(ViewRequestsList)
	rows, err := s.repo.Find(ctx, &request.FindParams{})
	if err != nil {
		return nil, err
	}
	deals := s.assembler.Assemble(ctx, rows)
	if !s.store.CompleteRefetch(ViewRequestsList, gen, deals) {
		s.log.Debug("requests: list refetch superseded, cache write dropped")
	}
	return deals, nil
}

// DealByID serves one assembled deal from its detail view, refetching when
// absent or stale.
func (s *RequestService) DealByID(ctx context.Context, id uuid.UUID) (*Deal, error) {
	key := ViewRequestDetail(id)
	if cached, ok := s.store.Get(key); ok && !s.store.IsStale(key) {
		if deal, ok := cached.(*Deal); ok {
			return deal, nil
		}
	}

	gen := s.store.BeginRefetch(key)
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	deal := s.assembler.Assemble(ctx, []*request.ConnectionRequest{row})[0]
	if !s.store.CompleteRefetch(key, gen, deal) {
		s.log.Debug("requests: detail refetch superseded, cache write dropped")
	}
	return deal, nil
}

func (s *RequestService) Create(ctx context.Context, r *request.ConnectionRequest) (*request.ConnectionRequest, error) {
	created, err := s.repo.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Invalidate(ctx, ViewRequestsList, ViewPipelineBoard, ViewListingRequests(created.ListingID))
	s.publisher.Publish(request.CreatedEvent{Request: created})
	return created, nil
}

// Transition moves a request to the target status on behalf of the acting
// admin. The identical patch is applied speculatively to every cached view
// holding the record and then persisted; failure restores the views and
// surfaces the error.
func (s *RequestService) Transition(ctx context.Context, id uuid.UUID, target request.Status) (*request.ConnectionRequest, error) {
	actor, err := composables.UseActorID(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := request.NewTransitionPatch(target, actor, s.now())
	if err != nil {
		return nil, err
	}

	keys := TargetViews(id)
	if err := s.checkViewShapes(keys); err != nil {
		return nil, err
	}

	fanout := FanOut(MutationTransition, current.ListingID)
	var updated *request.ConnectionRequest
	result := s.engine.Run(ctx, optimistic.Invocation{
		Keys: keys,
		Apply: func(_ viewcache.Key, cached any) any {
			return patchCachedRequest(cached, id, patch.Apply)
		},
		Persist: func(ctx context.Context) error {
			var err error
			updated, err = s.repo.Transition(ctx, id, patch)
			return err
		},
		FanOut: fanout,
	})
	if result.Err != nil {
		if result.State == optimistic.StateRolledBack {
			metrics.MutationRollbacks.Inc()
			metrics.StatusTransitions.WithLabelValues(string(target), "rolled_back").Inc()
		}
		return nil, result.Err
	}
	metrics.StatusTransitions.WithLabelValues(string(target), "committed").Inc()

	// The engine already marked the fan-out views stale locally; siblings
	// additionally need to refetch the views patched here.
	s.broadcaster.Publish(ctx, append(keys, fanout...)...)
	s.publisher.Publish(request.TransitionedEvent{
		Request:  updated,
		Previous: current.Status,
		Target:   target,
		ActorID:  actor,
		At:       patch.UpdatedAt,
	})

	if target.IsTerminal() && s.notifier != nil {
		s.dispatchDecision(updated)
	}
	return updated, nil
}

// MoveToStage reassigns the request's pipeline stage; nil unstages it.
func (s *RequestService) MoveToStage(ctx context.Context, id uuid.UUID, stageID *uuid.UUID) (*request.ConnectionRequest, error) {
	if _, err := composables.UseActorID(ctx); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := TargetViews(id)
	if err := s.checkViewShapes(keys); err != nil {
		return nil, err
	}

	at := s.now()
	fanout := FanOut(MutationStageMove, current.ListingID)
	var updated *request.ConnectionRequest
	result := s.engine.Run(ctx, optimistic.Invocation{
		Keys: keys,
		Apply: func(_ viewcache.Key, cached any) any {
			return patchCachedRequest(cached, id, func(r request.ConnectionRequest) request.ConnectionRequest {
				// Same condition as the store: the entered-at timestamp only
				// moves when the stage actually changes, both-nil included.
				if !sameStage(r.StageID, stageID) {
					enteredAt := at
					r.StageEnteredAt = &enteredAt
				}
				r.StageID = stageID
				r.UpdatedAt = at
				return r
			})
		},
		Persist: func(ctx context.Context) error {
			var err error
			updated, err = s.repo.MoveToStage(ctx, id, stageID, at)
			return err
		},
		FanOut: fanout,
	})
	if result.Err != nil {
		if result.State == optimistic.StateRolledBack {
			metrics.MutationRollbacks.Inc()
		}
		return nil, result.Err
	}

	s.broadcaster.Publish(ctx, append(keys, fanout...)...)
	s.publisher.Publish(request.StageMovedEvent{
		Request:   updated,
		FromStage: current.StageID,
		ToStage:   stageID,
		At:        at,
	})
	return updated, nil
}

// UpdateComment edits the admin comment under the same speculate/commit
// discipline; comments have no dependent views beyond the patched ones, but
// siblings still need to refetch those.
func (s *RequestService) UpdateComment(ctx context.Context, id uuid.UUID, comment string) (*request.ConnectionRequest, error) {
	if _, err := composables.UseActorID(ctx); err != nil {
		return nil, err
	}

	keys := TargetViews(id)
	if err := s.checkViewShapes(keys); err != nil {
		return nil, err
	}

	at := s.now()
	var updated *request.ConnectionRequest
	result := s.engine.Run(ctx, optimistic.Invocation{
		Keys: keys,
		Apply: func(_ viewcache.Key, cached any) any {
			return patchCachedRequest(cached, id, func(r request.ConnectionRequest) request.ConnectionRequest {
				r.AdminComment = comment
				r.UpdatedAt = at
				return r
			})
		},
		Persist: func(ctx context.Context) error {
			var err error
			updated, err = s.repo.UpdateComment(ctx, id, comment)
			return err
		},
		FanOut: FanOut(MutationComment, uuid.Nil),
	})
	if result.Err != nil {
		if result.State == optimistic.StateRolledBack {
			metrics.MutationRollbacks.Inc()
		}
		return nil, result.Err
	}
	s.broadcaster.Publish(ctx, keys...)
	return updated, nil
}

// dispatchDecision fires the notifier without tying its fate to the
// transition. The goroutine detaches from the request context and recovers
// its own panics.
func (s *RequestService) dispatchDecision(r *request.ConnectionRequest) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithField("panic", rec).Error("notification dispatch panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.DispatchDecision(ctx, r); err != nil {
			s.log.WithError(err).WithField("request_id", r.ID).
				Warn("notification dispatch failed")
		}
	}()
}

// checkViewShapes validates every cached view before any snapshot is taken:
// an unrecognized shape is a programming error and must fail loudly, not be
// silently patched around.
func (s *RequestService) checkViewShapes(keys []viewcache.Key) error {
	for _, key := range keys {
		cached, ok := s.store.Get(key)
		if !ok {
			continue
		}
		switch cached.(type) {
		case *request.ConnectionRequest, []*request.ConnectionRequest, *Deal, []*Deal:
		default:
			return serrors.NewUnexpectedShapeError(string(key), fmt.Sprintf("%T", cached))
		}
	}
	return nil
}

func sameStage(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// patchCachedRequest applies a record-level patch to whichever shape the
// view caches. Inputs are never mutated; rows the patch does not target are
// shared with the new slice.
func patchCachedRequest(cached any, id uuid.UUID, apply func(request.ConnectionRequest) request.ConnectionRequest) any {
	switch v := cached.(type) {
	case *request.ConnectionRequest:
		if v == nil || v.ID != id {
			return cached
		}
		patched := apply(*v)
		return &patched
	case []*request.ConnectionRequest:
		out := make([]*request.ConnectionRequest, len(v))
		for i, r := range v {
			if r != nil && r.ID == id {
				patched := apply(*r)
				out[i] = &patched
				continue
			}
			out[i] = r
		}
		return out
	case *Deal:
		if v == nil || v.Request == nil || v.Request.ID != id {
			return cached
		}
		patched := apply(*v.Request)
		d := *v
		d.Request = &patched
		return &d
	case []*Deal:
		out := make([]*Deal, len(v))
		for i, d := range v {
			if d != nil && d.Request != nil && d.Request.ID == id {
				patched := apply(*d.Request)
				nd := *d
				nd.Request = &patched
				out[i] = &nd
				continue
			}
			out[i] = d
		}
		return out
	}
	return cached
}
