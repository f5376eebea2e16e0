package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
	"github.com/dealdesk/dealdesk/pkg/composables"
	"github.com/dealdesk/dealdesk/pkg/serrors"
	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

// StageService administers the cosmetic pipeline stage set. The stage and
// status vocabularies themselves are fixed; only names, colors, order and
// activation change here. Every write invalidates the board.
type StageService struct {
	repo        stage.Repository
	broadcaster *viewcache.Broadcaster
}

func NewStageService(repo stage.Repository, broadcaster *viewcache.Broadcaster) *StageService {
	return &StageService{repo: repo, broadcaster: broadcaster}
}

func (s *StageService) GetAll(ctx context.Context) ([]*stage.Stage, error) {
	return s.repo.GetAll(ctx)
}

func (s *StageService) GetActive(ctx context.Context) ([]*stage.Stage, error) {
	return s.repo.GetActive(ctx)
}

func (s *StageService) GetByID(ctx context.Context, id uuid.UUID) (*stage.Stage, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *StageService) Create(ctx context.Context, data *stage.Stage) (*stage.Stage, error) {
	if _, err := composables.UseActorID(ctx); err != nil {
		return nil, err
	}
	if data.Name == "" {
		return nil, serrors.NewFieldRequiredError("name")
	}
	created, err := s.repo.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Invalidate(ctx, ViewPipelineBoard)
	return created, nil
}

func (s *StageService) Update(ctx context.Context, data *stage.Stage) (*stage.Stage, error) {
	if _, err := composables.UseActorID(ctx); err != nil {
		return nil, err
	}
	if data.Name == "" {
		return nil, serrors.NewFieldRequiredError("name")
	}
	updated, err := s.repo.Update(ctx, data)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Invalidate(ctx, ViewPipelineBoard)
	return updated, nil
}

func (s *StageService) Reorder(ctx context.Context, orderedIDs []uuid.UUID) error {
	if _, err := composables.UseActorID(ctx); err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return serrors.NewFieldRequiredError("stage_ids")
	}
	if err := s.repo.Reorder(ctx, orderedIDs); err != nil {
		return err
	}
	s.broadcaster.Invalidate(ctx, ViewPipelineBoard)
	return nil
}

// Delete removes a stage without touching the requests that reference it;
// they render as unstaged from then on.
func (s *StageService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := composables.UseActorID(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.broadcaster.Invalidate(ctx, ViewPipelineBoard, ViewRequestsList)
	return nil
}
