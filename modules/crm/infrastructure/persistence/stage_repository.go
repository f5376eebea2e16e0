package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence/models"
	"github.com/dealdesk/dealdesk/pkg/composables"
)

var (
	ErrStageNotFound = errors.New("pipeline stage not found")
)

const (
	stageColumns = `
        ps.id,
        ps.name,
        ps.position,
        ps.color,
        ps.active,
        ps.is_default,
        ps.automation_rules,
        ps.created_at,
        ps.updated_at`

	stageFindQuery = `SELECT` + stageColumns + ` FROM pipeline_stages ps`

	stageInsertQuery = `
        INSERT INTO pipeline_stages AS ps (name, position, color, active, is_default, automation_rules, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, now(), now())
        RETURNING` + stageColumns

	stageUpdateQuery = `
        UPDATE pipeline_stages ps SET
            name = $2,
            color = $3,
            active = $4,
            is_default = $5,
            automation_rules = $6,
            updated_at = now()
        WHERE ps.id = $1
        RETURNING` + stageColumns

	stageDeleteQuery = `DELETE FROM pipeline_stages WHERE id = $1`

	// Two-phase reorder: park positions in negative space first so the
	// unique-position-among-active constraint never trips mid-update.
	stageParkPositionQuery  = `UPDATE pipeline_stages SET position = -position - 1 WHERE id = ANY($1::uuid[])`
	stageFinalPositionQuery = `UPDATE pipeline_stages SET position = $2, updated_at = now() WHERE id = $1`
)

type PgStageRepository struct{}

func NewStageRepository() stage.Repository {
	return &PgStageRepository{}
}

func scanStage(row pgx.Row) (*stage.Stage, error) {
	var m models.PipelineStage
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Position,
		&m.Color,
		&m.Active,
		&m.IsDefault,
		&m.AutomationRules,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainStage(&m), nil
}

func (g *PgStageRepository) queryStages(ctx context.Context, q string, args ...any) ([]*stage.Stage, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query pipeline stages")
	}
	defer rows.Close()

	var result []*stage.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (g *PgStageRepository) GetAll(ctx context.Context) ([]*stage.Stage, error) {
	return g.queryStages(ctx, stageFindQuery+" ORDER BY ps.position")
}

func (g *PgStageRepository) GetActive(ctx context.Context) ([]*stage.Stage, error) {
	return g.queryStages(ctx, stageFindQuery+" WHERE ps.active ORDER BY ps.position")
}

func (g *PgStageRepository) GetByID(ctx context.Context, id uuid.UUID) (*stage.Stage, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	s, err := scanStage(tx.QueryRow(ctx, stageFindQuery+" WHERE ps.id = $1", pgUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	return s, nil
}

func (g *PgStageRepository) Create(ctx context.Context, s *stage.Stage) (*stage.Stage, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	created, err := scanStage(tx.QueryRow(ctx, stageInsertQuery,
		s.Name,
		int32(s.Position),
		s.Color,
		s.Active,
		s.Default,
		[]byte(s.AutomationRules),
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert pipeline stage")
	}
	return created, nil
}

func (g *PgStageRepository) Update(ctx context.Context, s *stage.Stage) (*stage.Stage, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := scanStage(tx.QueryRow(ctx, stageUpdateQuery,
		pgUUID(s.ID),
		s.Name,
		s.Color,
		s.Active,
		s.Default,
		[]byte(s.AutomationRules),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, errors.Wrap(err, "failed to update pipeline stage")
	}
	return updated, nil
}

func (g *PgStageRepository) Reorder(ctx context.Context, orderedIDs []uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(txCtx, stageParkPositionQuery, uuidStrings(orderedIDs)); err != nil {
			return errors.Wrap(err, "failed to park stage positions")
		}
		for i, id := range orderedIDs {
			tag, err := tx.Exec(txCtx, stageFinalPositionQuery, pgUUID(id), int32(i))
			if err != nil {
				return errors.Wrap(err, "failed to set stage position")
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrStageNotFound, id)
			}
		}
		return nil
	})
}

func (g *PgStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, stageDeleteQuery, pgUUID(id))
	if err != nil {
		return errors.Wrap(err, "failed to delete pipeline stage")
	}
	if tag.RowsAffected() == 0 {
		return ErrStageNotFound
	}
	return nil
}
