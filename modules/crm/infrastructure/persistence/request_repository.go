package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence/models"
	"github.com/dealdesk/dealdesk/pkg/composables"
)

var (
	ErrRequestNotFound = errors.New("connection request not found")
)

const (
	requestColumns = `
        cr.id,
        cr.buyer_id,
        cr.listing_id,
        cr.status,
        cr.stage_id,
        cr.stage_entered_at,
        cr.priority_score,
        cr.admin_comment,
        cr.decision_at,
        cr.source_channel,
        cr.approved_by,
        cr.approved_at,
        cr.rejected_by,
        cr.rejected_at,
        cr.on_hold_by,
        cr.on_hold_at,
        cr.follow_up_by,
        cr.follow_up_at,
        cr.flagged_by,
        cr.flagged_at,
        cr.nda_signed,
        cr.fee_agreement_signed,
        cr.created_at,
        cr.updated_at`

	requestFindQuery = `SELECT` + requestColumns + `
        FROM connection_requests cr`

	requestCountQuery = `SELECT COUNT(cr.id) FROM connection_requests cr`

	requestInsertQuery = `
        INSERT INTO connection_requests AS cr (
            buyer_id, listing_id, status, stage_id, stage_entered_at,
            priority_score, admin_comment, source_channel,
            nda_signed, fee_agreement_signed, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
        RETURNING` + requestColumns

	// The transition writes status, decision timestamp and all three
	// attribution pairs in one statement: single-record atomicity is the
	// only transactional guarantee this store provides.
	requestTransitionQuery = `
        UPDATE connection_requests cr SET
            status = $2,
            decision_at = $3,
            approved_by = $4, approved_at = $5,
            rejected_by = $6, rejected_at = $7,
            on_hold_by = $8, on_hold_at = $9,
            updated_at = $10
        WHERE cr.id = $1
        RETURNING` + requestColumns

	requestMoveStageQuery = `
        UPDATE connection_requests cr SET
            stage_id = $2,
            stage_entered_at = CASE
                WHEN cr.stage_id IS NOT DISTINCT FROM $2 THEN cr.stage_entered_at
                ELSE $3
            END,
            updated_at = $3
        WHERE cr.id = $1
        RETURNING` + requestColumns

	requestUpdateCommentQuery = `
        UPDATE connection_requests cr SET
            admin_comment = $2,
            updated_at = now()
        WHERE cr.id = $1
        RETURNING` + requestColumns
)

type PgRequestRepository struct {
	sortMap map[request.SortBy]string
}

func NewRequestRepository() request.Repository {
	return &PgRequestRepository{
		sortMap: map[request.SortBy]string{
			request.SortByCreatedAt: "cr.created_at",
			request.SortByPriority:  "cr.priority_score",
			request.SortByDecision:  "cr.decision_at",
		},
	}
}

func scanRequest(row pgx.Row) (*request.ConnectionRequest, error) {
	var m models.ConnectionRequest
	if err := row.Scan(
		&m.ID,
		&m.BuyerID,
		&m.ListingID,
		&m.Status,
		&m.StageID,
		&m.StageEnteredAt,
		&m.PriorityScore,
		&m.AdminComment,
		&m.DecisionAt,
		&m.SourceChannel,
		&m.ApprovedBy,
		&m.ApprovedAt,
		&m.RejectedBy,
		&m.RejectedAt,
		&m.OnHoldBy,
		&m.OnHoldAt,
		&m.FollowUpBy,
		&m.FollowUpAt,
		&m.FlaggedBy,
		&m.FlaggedAt,
		&m.NDASigned,
		&m.FeeAgreementSigned,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainRequest(&m), nil
}

func (g *PgRequestRepository) buildFilters(params *request.FindParams) ([]string, []any) {
	var where []string
	var args []any
	idx := func() int { return len(args) }

	if len(params.Statuses) > 0 {
		statuses := make([]string, len(params.Statuses))
		for i, s := range params.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("cr.status = ANY($%d)", idx()))
	}
	if len(params.StageIDs) > 0 {
		args = append(args, uuidStrings(params.StageIDs))
		where = append(where, fmt.Sprintf("cr.stage_id = ANY($%d::uuid[])", idx()))
	}
	if len(params.ListingIDs) > 0 {
		args = append(args, uuidStrings(params.ListingIDs))
		where = append(where, fmt.Sprintf("cr.listing_id = ANY($%d::uuid[])", idx()))
	}
	if len(params.BuyerIDs) > 0 {
		args = append(args, uuidStrings(params.BuyerIDs))
		where = append(where, fmt.Sprintf("cr.buyer_id = ANY($%d::uuid[])", idx()))
	}
	return where, args
}

func (g *PgRequestRepository) Create(ctx context.Context, r *request.ConnectionRequest) (*request.ConnectionRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, requestInsertQuery,
		pgUUIDPtr(r.BuyerID),
		pgUUID(r.ListingID),
		string(request.StatusPending),
		pgUUIDPtr(r.StageID),
		pgTimePtr(r.StageEnteredAt),
		r.PriorityScore,
		r.AdminComment,
		r.SourceChannel,
		r.NDASigned,
		r.FeeAgreementSigned,
	)
	created, err := scanRequest(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert connection request")
	}
	return created, nil
}

func (g *PgRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.ConnectionRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, requestFindQuery+" WHERE cr.id = $1", pgUUID(id))
	found, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return found, nil
}

func (g *PgRequestRepository) Find(ctx context.Context, params *request.FindParams) ([]*request.ConnectionRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	q := requestFindQuery
	where, args := g.buildFilters(params)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	sortCol, ok := g.sortMap[params.SortBy]
	if !ok {
		sortCol = "cr.created_at"
	}
	dir := "DESC"
	if params.Ascending {
		dir = "ASC"
	}
	q += fmt.Sprintf(" ORDER BY %s %s, cr.created_at DESC", sortCol, dir)

	if params.Limit > 0 {
		args = append(args, params.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query connection requests")
	}
	defer rows.Close()

	var result []*request.ConnectionRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (g *PgRequestRepository) Count(ctx context.Context, params *request.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	q := requestCountQuery
	where, args := g.buildFilters(params)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	var count int64
	if err := tx.QueryRow(ctx, q, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (g *PgRequestRepository) Transition(ctx context.Context, id uuid.UUID, patch request.TransitionPatch) (*request.ConnectionRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	cols := patch.Outcome.Flatten()
	row := tx.QueryRow(ctx, requestTransitionQuery,
		pgUUID(id),
		string(patch.Status),
		pgTimePtr(patch.DecisionAt),
		pgUUIDPtr(cols.ApprovedBy), pgTimePtr(cols.ApprovedAt),
		pgUUIDPtr(cols.RejectedBy), pgTimePtr(cols.RejectedAt),
		pgUUIDPtr(cols.OnHoldBy), pgTimePtr(cols.OnHoldAt),
		pgTime(patch.UpdatedAt),
	)
	updated, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, errors.Wrap(err, "failed to transition connection request")
	}
	return updated, nil
}

func (g *PgRequestRepository) MoveToStage(ctx context.Context, id uuid.UUID, stageID *uuid.UUID, at time.Time) (*request.ConnectionRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, requestMoveStageQuery, pgUUID(id), pgUUIDPtr(stageID), pgTime(at))
	updated, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, errors.Wrap(err, "failed to move connection request to stage")
	}
	return updated, nil
}

func (g *PgRequestRepository) UpdateComment(ctx context.Context, id uuid.UUID, comment string) (*request.ConnectionRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, requestUpdateCommentQuery, pgUUID(id), comment)
	updated, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return updated, nil
}
