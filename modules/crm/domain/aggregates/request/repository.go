package request

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SortBy string

const (
	SortByCreatedAt SortBy = "created_at"
	SortByPriority  SortBy = "priority_score"
	SortByDecision  SortBy = "decision_at"
)

type FindParams struct {
	Statuses   []Status
	StageIDs   []uuid.UUID
	ListingIDs []uuid.UUID
	BuyerIDs   []uuid.UUID
	SortBy     SortBy
	Ascending  bool
	Limit      int
	Offset     int
}

// Repository is the record-store contract for connection requests. The
// status transition is a dedicated atomic operation, never a field edit.
type Repository interface {
	Create(ctx context.Context, r *ConnectionRequest) (*ConnectionRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ConnectionRequest, error)
	Find(ctx context.Context, params *FindParams) ([]*ConnectionRequest, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// Transition applies the patch to the stored row atomically: status,
	// decision timestamp and all three attribution pairs in one update.
	Transition(ctx context.Context, id uuid.UUID, patch TransitionPatch) (*ConnectionRequest, error)
	// MoveToStage reassigns the pipeline stage (nil unstages) and stamps
	// stage_entered_at. Re-entering the current stage is a no-op that still
	// returns the row.
	MoveToStage(ctx context.Context, id uuid.UUID, stageID *uuid.UUID, at time.Time) (*ConnectionRequest, error)
	UpdateComment(ctx context.Context, id uuid.UUID, comment string) (*ConnectionRequest, error)
}
