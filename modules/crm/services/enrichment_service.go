package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/configuration"
	"github.com/dealdesk/dealdesk/pkg/metrics"
)

// EnrichmentClient submits one batch of buyer ids to the external
// enrichment/scoring job endpoint.
type EnrichmentClient interface {
	SubmitBatch(ctx context.Context, buyerIDs []uuid.UUID) error
}

// EnrichmentReport summarizes one submission run. Only accepted counts are
// reported; job completion arrives later as an external view invalidation.
type EnrichmentReport struct {
	Submitted     int  `json:"submitted"`
	Batches       int  `json:"batches"`
	FailedBatches int  `json:"failed_batches"`
	Aborted       bool `json:"aborted"`
	Cancelled     bool `json:"cancelled"`
}

// EnrichmentService feeds buyer ids to the enrichment endpoint in fixed-size
// batches, sequentially, and fails fast once too many batches fail in a row.
type EnrichmentService struct {
	client EnrichmentClient
	opts   configuration.EnrichmentOptions
	log    *logrus.Logger
}

func NewEnrichmentService(client EnrichmentClient, opts configuration.EnrichmentOptions, log *logrus.Logger) *EnrichmentService {
	return &EnrichmentService{client: client, opts: opts, log: log}
}

// Submit runs the batch loop. Cancelling ctx stops further submission after
// the current batch finishes; already-submitted work is never reverted, so
// the in-flight batch runs on a detached context. The report is returned
// alongside the error so callers always see how far the run got.
func (s *EnrichmentService) Submit(ctx context.Context, buyerIDs []uuid.UUID) (*EnrichmentReport, error) {
	report := &EnrichmentReport{}
	if len(buyerIDs) == 0 {
		return report, nil
	}

	consecutiveFails := 0
	for start := 0; start < len(buyerIDs); start += s.opts.BatchSize {
		if ctx.Err() != nil {
			report.Cancelled = true
			s.log.WithField("submitted", report.Submitted).Info("enrichment: run cancelled between batches")
			return report, nil
		}

		end := min(start+s.opts.BatchSize, len(buyerIDs))
		batch := buyerIDs[start:end]

		batchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SubmitTimeout)
		err := s.client.SubmitBatch(batchCtx, batch)
		cancel()

		report.Batches++
		if err != nil {
			report.FailedBatches++
			consecutiveFails++
			metrics.EnrichmentBatches.WithLabelValues("failed").Inc()
			s.log.WithError(err).WithFields(logrus.Fields{
				"batch":             report.Batches,
				"consecutive_fails": consecutiveFails,
			}).Warn("enrichment: batch submission failed")

			if consecutiveFails >= s.opts.MaxConsecutiveFails {
				report.Aborted = true
				return report, fmt.Errorf(
					"enrichment aborted after %d consecutive batch failures: %w",
					consecutiveFails, err,
				)
			}
			continue
		}

		consecutiveFails = 0
		report.Submitted += len(batch)
		metrics.EnrichmentBatches.WithLabelValues("ok").Inc()
	}
	return report, nil
}
