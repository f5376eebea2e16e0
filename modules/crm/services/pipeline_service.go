package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

// BoardOptions are the configurable knobs of the board aggregation.
type BoardOptions struct {
	// WonStageName is the stage that counts as a conversion.
	WonStageName string
	// DocumentFlags are the flag names that must all be true for a deal to
	// count as document-complete.
	DocumentFlags []string
}

// StageGroup is one kanban column: an active stage with its deals sorted by
// priority descending, then created-at descending.
type StageGroup struct {
	Stage             *stage.Stage    `json:"stage"`
	Deals             []*Deal         `json:"deals"`
	Count             int             `json:"count"`
	ValueSum          decimal.Decimal `json:"value_sum"`
	MeanPriority      float64         `json:"mean_priority"`
	DocumentsComplete int             `json:"documents_complete"`
}

// Board is the aggregated pipeline view. Totals cover every deal, including
// those excluded from stage groups for having no (or an inactive) stage.
type Board struct {
	Groups               []*StageGroup   `json:"groups"`
	TotalCount           int             `json:"total_count"`
	TotalValue           decimal.Decimal `json:"total_value"`
	ConversionRate       float64         `json:"conversion_rate"`
	DocumentsComplete    int             `json:"documents_complete"`
	DocumentsCompletePct float64         `json:"documents_complete_pct"`
}

// BuildBoard aggregates deals into the pipeline board. Pure: same inputs,
// same board, no hidden state.
func BuildBoard(deals []*Deal, stages []*stage.Stage, opts BoardOptions) *Board {
	board := &Board{
		TotalValue: decimal.Zero,
	}

	groupsByStage := make(map[string]*StageGroup)
	for _, s := range stages {
		if !s.Active {
			continue
		}
		g := &StageGroup{Stage: s, ValueSum: decimal.Zero}
		groupsByStage[s.ID.String()] = g
		board.Groups = append(board.Groups, g)
	}
	sort.Slice(board.Groups, func(i, j int) bool {
		return board.Groups[i].Stage.Position < board.Groups[j].Stage.Position
	})

	won := 0
	for _, d := range deals {
		board.TotalCount++
		value := dealValue(d)
		board.TotalValue = board.TotalValue.Add(value)
		if d.Request.DocumentsComplete(opts.DocumentFlags) {
			board.DocumentsComplete++
		}

		// Deals with no stage, an unknown stage or an inactive stage stay out
		// of the columns but remain in the totals above.
		if d.Request.StageID == nil {
			continue
		}
		g, ok := groupsByStage[d.Request.StageID.String()]
		if !ok {
			continue
		}
		g.Deals = append(g.Deals, d)
		g.Count++
		g.ValueSum = g.ValueSum.Add(value)
		g.MeanPriority += d.Request.PriorityScore
		if d.Request.DocumentsComplete(opts.DocumentFlags) {
			g.DocumentsComplete++
		}
		if g.Stage.Name == opts.WonStageName {
			won++
		}
	}

	for _, g := range board.Groups {
		if g.Count > 0 {
			g.MeanPriority /= float64(g.Count)
		}
		SortDeals(g.Deals, request.SortByPriority, false)
	}

	if board.TotalCount > 0 {
		board.ConversionRate = float64(won) / float64(board.TotalCount)
		board.DocumentsCompletePct = float64(board.DocumentsComplete) / float64(board.TotalCount)
	}
	return board
}

func dealValue(d *Deal) decimal.Decimal {
	if d.Listing == nil {
		return decimal.Zero
	}
	return d.Listing.Revenue
}

// PipelineService produces the board view, caching it in the view store
// under a refetch generation so a mutation racing the rebuild can cancel it.
type PipelineService struct {
	requests  request.Repository
	stages    stage.Repository
	assembler *Assembler
	store     viewcache.Store
	opts      BoardOptions
	log       *logrus.Logger
}

func NewPipelineService(
	requests request.Repository,
	stages stage.Repository,
	assembler *Assembler,
	store viewcache.Store,
	opts BoardOptions,
	log *logrus.Logger,
) *PipelineService {
	return &PipelineService{
		requests:  requests,
		stages:    stages,
		assembler: assembler,
		store:     store,
		opts:      opts,
		log:       log,
	}
}

// Board returns the cached board when fresh, otherwise rebuilds it. A
// rebuild whose generation was cancelled mid-flight still returns its result
// to the caller; only the cache write is dropped.
func (s *PipelineService) Board(ctx context.Context) (*Board, error) {
	if cached, ok := s.store.Get(ViewPipelineBoard); ok && !s.store.IsStale(ViewPipelineBoard) {
		if board, ok := cached.(*Board); ok {
			return board, nil
		}
	}
	return s.Rebuild(ctx)
}

// Rebuild fetches everything, aggregates and attempts to publish the result
// into the view store.
func (s *PipelineService) Rebuild(ctx context.Context) (*Board, error) {
	gen := s.store.BeginRefetch(ViewPipelineBoard)

	rows, err := s.requests.Find(ctx, &request.FindParams{})
	if err != nil {
		return nil, err
	}
	stages, err := s.stages.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	deals := s.assembler.Assemble(ctx, rows)
	board := BuildBoard(deals, stages, s.opts)

	if !s.store.CompleteRefetch(ViewPipelineBoard, gen, board) {
		s.log.Debug("pipeline: board refetch superseded, cache write dropped")
	}
	return board, nil
}
