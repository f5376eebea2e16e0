package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransitionPatch is the full attribute patch for one status transition. It
// is computed once and applied identically to cached views and to the
// backing store, so both paths stay consistent.
type TransitionPatch struct {
	Status     Status
	Outcome    Outcome
	DecisionAt *time.Time
	UpdatedAt  time.Time
}

// NewTransitionPatch computes the patch for moving a request to target,
// attributed to actor at now. Targets other than pending require an actor;
// pending clears all attribution and the decision timestamp.
func NewTransitionPatch(target Status, actor uuid.UUID, now time.Time) (TransitionPatch, error) {
	if !target.IsValid() {
		return TransitionPatch{}, fmt.Errorf("invalid target status %q", target)
	}
	if target != StatusPending && actor == uuid.Nil {
		return TransitionPatch{}, fmt.Errorf("transition to %q requires an acting admin", target)
	}

	patch := TransitionPatch{
		Status:    target,
		Outcome:   OutcomeForStatus(target, actor, now),
		UpdatedAt: now,
	}
	if target != StatusPending {
		decisionAt := now
		patch.DecisionAt = &decisionAt
	}
	return patch, nil
}

// Apply returns a copy of r with the patch applied. No transition is
// rejected based on the current status.
func (p TransitionPatch) Apply(r ConnectionRequest) ConnectionRequest {
	r.Status = p.Status
	r.Outcome = p.Outcome
	r.DecisionAt = p.DecisionAt
	r.UpdatedAt = p.UpdatedAt
	return r
}

// IsDowngradeFrom reports whether applying the patch would move a request
// out of a terminal state. Advisory only: callers may present a
// confirmation step, the model never blocks it.
func (p TransitionPatch) IsDowngradeFrom(current Status) bool {
	return current.IsTerminal() && !p.Status.IsTerminal()
}
