package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/listing"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

var boardOpts = BoardOptions{
	WonStageName:  "Closed Won",
	DocumentFlags: []string{"nda_signed", "fee_agreement_signed"},
}

func testStage(name string, position int, active bool) *stage.Stage {
	return &stage.Stage{ID: uuid.New(), Name: name, Position: position, Active: active}
}

func stagedDeal(s *stage.Stage, revenue int64, priority float64, mut func(*request.ConnectionRequest)) *Deal {
	d := dealWith(nil, &listing.Listing{ID: uuid.New(), Revenue: decimal.NewFromInt(revenue)}, func(r *request.ConnectionRequest) {
		if s != nil {
			stageID := s.ID
			r.StageID = &stageID
		}
		r.PriorityScore = priority
		if mut != nil {
			mut(r)
		}
	})
	d.Stage = s
	return d
}

func TestBuildBoard_GroupsAndTotals(t *testing.T) {
	intake := testStage("Intake", 0, true)
	won := testStage("Closed Won", 1, true)
	archived := testStage("Old Column", 2, false)

	deals := []*Deal{
		stagedDeal(intake, 100, 2, nil),
		stagedDeal(intake, 200, 4, func(r *request.ConnectionRequest) {
			r.NDASigned = true
			r.FeeAgreementSigned = true
		}),
		stagedDeal(won, 500, 9, nil),
		// Inactive stage, unknown stage and unstaged: out of the columns,
		// inside the totals.
		stagedDeal(archived, 50, 1, nil),
		stagedDeal(nil, 25, 1, func(r *request.ConnectionRequest) {
			ghost := uuid.New()
			r.StageID = &ghost
		}),
		stagedDeal(nil, 10, 1, nil),
	}

	board := BuildBoard(deals, []*stage.Stage{won, intake, archived}, boardOpts)

	require.Len(t, board.Groups, 2, "inactive stages get no column")
	require.Equal(t, "Intake", board.Groups[0].Stage.Name, "columns ordered by position")
	require.Equal(t, "Closed Won", board.Groups[1].Stage.Name)

	intakeGroup := board.Groups[0]
	require.Equal(t, 2, intakeGroup.Count)
	require.True(t, intakeGroup.ValueSum.Equal(decimal.NewFromInt(300)))
	require.InDelta(t, 3.0, intakeGroup.MeanPriority, 1e-9)
	require.Equal(t, 1, intakeGroup.DocumentsComplete)
	require.Equal(t, float64(4), intakeGroup.Deals[0].Request.PriorityScore, "group sorted by priority desc")

	require.Equal(t, 6, board.TotalCount)
	require.True(t, board.TotalValue.Equal(decimal.NewFromInt(885)))
	require.InDelta(t, 1.0/6.0, board.ConversionRate, 1e-9)
	require.Equal(t, 1, board.DocumentsComplete)
	require.InDelta(t, 1.0/6.0, board.DocumentsCompletePct, 1e-9)
}

func TestBuildBoard_ZeroGuards(t *testing.T) {
	board := BuildBoard(nil, []*stage.Stage{testStage("Intake", 0, true)}, boardOpts)

	require.Equal(t, 0, board.TotalCount)
	require.Zero(t, board.ConversionRate, "conversion rate guards division by zero")
	require.Zero(t, board.DocumentsCompletePct)
	require.True(t, board.TotalValue.Equal(decimal.Zero))
	require.Len(t, board.Groups, 1)
	require.Zero(t, board.Groups[0].MeanPriority)
}

func TestBuildBoard_NilListingContributesZeroValue(t *testing.T) {
	s := testStage("Intake", 0, true)
	d := stagedDeal(s, 100, 1, nil)
	d.Listing = nil

	board := BuildBoard([]*Deal{d}, []*stage.Stage{s}, boardOpts)
	require.True(t, board.TotalValue.Equal(decimal.Zero))
	require.True(t, board.Groups[0].ValueSum.Equal(decimal.Zero))
}

func TestBuildBoard_IsPure(t *testing.T) {
	s := testStage("Intake", 0, true)
	deals := []*Deal{stagedDeal(s, 100, 3, nil), stagedDeal(s, 200, 7, nil)}
	stages := []*stage.Stage{s}

	first := BuildBoard(deals, stages, boardOpts)
	second := BuildBoard(deals, stages, boardOpts)
	require.Equal(t, first, second)
}

type boardRequestRepo struct {
	rows []*request.ConnectionRequest
}

func (m *boardRequestRepo) Create(_ context.Context, r *request.ConnectionRequest) (*request.ConnectionRequest, error) {
	return r, nil
}
func (m *boardRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*request.ConnectionRequest, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}
func (m *boardRequestRepo) Find(context.Context, *request.FindParams) ([]*request.ConnectionRequest, error) {
	return m.rows, nil
}
func (m *boardRequestRepo) Count(context.Context, *request.FindParams) (int64, error) {
	return int64(len(m.rows)), nil
}
func (m *boardRequestRepo) Transition(_ context.Context, _ uuid.UUID, _ request.TransitionPatch) (*request.ConnectionRequest, error) {
	return nil, nil
}
func (m *boardRequestRepo) MoveToStage(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _ time.Time) (*request.ConnectionRequest, error) {
	return nil, nil
}
func (m *boardRequestRepo) UpdateComment(_ context.Context, _ uuid.UUID, _ string) (*request.ConnectionRequest, error) {
	return nil, nil
}

func TestPipelineService_BoardCachesUntilStale(t *testing.T) {
	s := testStage("Intake", 0, true)
	repo := &boardRequestRepo{rows: []*request.ConnectionRequest{
		{ID: uuid.New(), ListingID: uuid.New(), StageID: &s.ID},
	}}
	stages := &mockStageRepo{stages: []*stage.Stage{s}}
	store := viewcache.NewMemoryStore()
	assembler := NewAssembler(&mockProfileRepo{}, &mockListingRepo{}, stages, silentLogger())

	svc := NewPipelineService(repo, stages, assembler, store, boardOpts, silentLogger())

	first, err := svc.Board(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.TotalCount)

	// A second request is served from the cache without refetching.
	repo.rows = append(repo.rows, &request.ConnectionRequest{ID: uuid.New(), ListingID: uuid.New()})
	cached, err := svc.Board(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cached.TotalCount)

	// Invalidation forces the rebuild.
	store.MarkStale(ViewPipelineBoard)
	rebuilt, err := svc.Board(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rebuilt.TotalCount)
}

func TestPipelineService_CancelledRefetchDropsCacheWrite(t *testing.T) {
	s := testStage("Intake", 0, true)
	repo := &boardRequestRepo{}
	stages := &mockStageRepo{stages: []*stage.Stage{s}}
	store := viewcache.NewMemoryStore()
	assembler := NewAssembler(&mockProfileRepo{}, &mockListingRepo{}, stages, silentLogger())
	svc := NewPipelineService(repo, stages, assembler, store, boardOpts, silentLogger())

	stale := &Board{TotalCount: 99}
	store.Set(ViewPipelineBoard, stale)
	store.MarkStale(ViewPipelineBoard)

	// Simulate a mutation cancelling the in-flight refetch: the rebuild
	// still answers the caller but must not overwrite the cache.
	gen := store.BeginRefetch(ViewPipelineBoard)
	store.CancelRefetch(ViewPipelineBoard)
	require.False(t, store.CompleteRefetch(ViewPipelineBoard, gen, &Board{}))

	board, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, board.TotalCount)
}
