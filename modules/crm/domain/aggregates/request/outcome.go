package request

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeKind tags the attribution union. The three decided kinds carry the
// acting admin and timestamp; None carries neither.
type OutcomeKind string

const (
	OutcomeNone     OutcomeKind = "none"
	OutcomeApproved OutcomeKind = "approved"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeOnHold   OutcomeKind = "on_hold"
)

// Outcome is the attribution recorded for whichever decision a request
// currently holds. Modeling the three nullable (actor, at) column pairs as
// one tagged union makes "at most one pair non-null" structural: there is no
// clear-the-other-two bookkeeping to forget.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	ActorID uuid.UUID   `json:"actor_id,omitempty"`
	At      time.Time   `json:"at,omitempty"`
}

func NoOutcome() Outcome {
	return Outcome{Kind: OutcomeNone}
}

func NewOutcome(kind OutcomeKind, actorID uuid.UUID, at time.Time) Outcome {
	if kind == OutcomeNone {
		return NoOutcome()
	}
	return Outcome{Kind: kind, ActorID: actorID, At: at}
}

// OutcomeForStatus maps a target status to the attribution kind it records.
// Pending records no attribution.
func OutcomeForStatus(status Status, actorID uuid.UUID, at time.Time) Outcome {
	switch status {
	case StatusApproved:
		return NewOutcome(OutcomeApproved, actorID, at)
	case StatusRejected:
		return NewOutcome(OutcomeRejected, actorID, at)
	case StatusOnHold:
		return NewOutcome(OutcomeOnHold, actorID, at)
	}
	return NoOutcome()
}

func (o Outcome) IsNone() bool {
	return o.Kind == OutcomeNone || o.Kind == ""
}

// AttributionColumns is the flattened storage shape: three nullable
// (actor, at) pairs of which at most one is non-null.
type AttributionColumns struct {
	ApprovedBy *uuid.UUID
	ApprovedAt *time.Time
	RejectedBy *uuid.UUID
	RejectedAt *time.Time
	OnHoldBy   *uuid.UUID
	OnHoldAt   *time.Time
}

// Flatten spreads the union across the storage columns, nulling the pairs
// that do not match the current kind.
func (o Outcome) Flatten() AttributionColumns {
	cols := AttributionColumns{}
	if o.IsNone() {
		return cols
	}
	actor, at := o.ActorID, o.At
	switch o.Kind {
	case OutcomeApproved:
		cols.ApprovedBy, cols.ApprovedAt = &actor, &at
	case OutcomeRejected:
		cols.RejectedBy, cols.RejectedAt = &actor, &at
	case OutcomeOnHold:
		cols.OnHoldBy, cols.OnHoldAt = &actor, &at
	}
	return cols
}

// OutcomeFromColumns rebuilds the union from stored columns. The first
// non-null pair wins in the approved/rejected/on-hold order; rows that
// violate the exclusivity invariant degrade deterministically instead of
// failing reads.
func OutcomeFromColumns(cols AttributionColumns) Outcome {
	switch {
	case cols.ApprovedBy != nil && cols.ApprovedAt != nil:
		return NewOutcome(OutcomeApproved, *cols.ApprovedBy, *cols.ApprovedAt)
	case cols.RejectedBy != nil && cols.RejectedAt != nil:
		return NewOutcome(OutcomeRejected, *cols.RejectedBy, *cols.RejectedAt)
	case cols.OnHoldBy != nil && cols.OnHoldAt != nil:
		return NewOutcome(OutcomeOnHold, *cols.OnHoldBy, *cols.OnHoldAt)
	}
	return NoOutcome()
}

// AttributionActorIDs lists the distinct admin ids referenced by the
// request's attribution fields, for batch profile resolution.
func (r *ConnectionRequest) AttributionActorIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, 3)
	ids := make([]uuid.UUID, 0, 3)
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if !r.Outcome.IsNone() {
		add(r.Outcome.ActorID)
	}
	if r.FollowUpBy != nil {
		add(*r.FollowUpBy)
	}
	if r.FlaggedBy != nil {
		add(*r.FlaggedBy)
	}
	return ids
}
