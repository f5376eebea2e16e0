package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence"
	"github.com/dealdesk/dealdesk/modules/crm/services"
	"github.com/dealdesk/dealdesk/pkg/composables"
	"github.com/dealdesk/dealdesk/pkg/configuration"
)

type boardOutput struct {
	Command    string   `json:"command"`
	DurationMS int64    `json:"duration_ms"`
	Result     any      `json:"result"`
	Statuses   []string `json:"statuses,omitempty"`
}

func newBoardCmd() *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Aggregate the current pipeline board to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			params := &request.FindParams{}
			for _, s := range statuses {
				params.Statuses = append(params.Statuses, request.Status(s))
			}

			requestRepo := persistence.NewRequestRepository()
			stageRepo := persistence.NewStageRepository()
			assembler := services.NewAssembler(
				persistence.NewProfileRepository(),
				persistence.NewListingRepository(),
				stageRepo,
				conf.Logger(),
			)

			start := time.Now()
			rows, err := requestRepo.Find(ctx, params)
			if err != nil {
				return err
			}
			stages, err := stageRepo.GetAll(ctx)
			if err != nil {
				return err
			}
			board := services.BuildBoard(assembler.Assemble(ctx, rows), stages, services.BoardOptions{
				WonStageName:  conf.Pipeline.WonStageName,
				DocumentFlags: conf.Pipeline.DocumentFlags,
			})

			return writeJSON(boardOutput{
				Command:    "pipeline board",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     board,
				Statuses:   statuses,
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Limit to these statuses (repeatable)")
	return cmd
}
