package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealdesk/pkg/configuration"
)

type fakeEnrichmentClient struct {
	batches [][]uuid.UUID
	// failOn holds 1-based batch numbers that fail.
	failOn map[int]bool
	// cancelAfter cancels this context after the given 1-based batch.
	cancelAfter int
	cancel      context.CancelFunc
}

func (c *fakeEnrichmentClient) SubmitBatch(_ context.Context, ids []uuid.UUID) error {
	c.batches = append(c.batches, ids)
	n := len(c.batches)
	if c.cancelAfter == n && c.cancel != nil {
		c.cancel()
	}
	if c.failOn[n] {
		return errors.New("enrichment endpoint error")
	}
	return nil
}

func enrichmentOpts() configuration.EnrichmentOptions {
	return configuration.EnrichmentOptions{
		BatchSize:           14,
		MaxConsecutiveFails: 3,
		SubmitTimeout:       time.Second,
	}
}

func buyerIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestEnrichmentService_FixedSizeBatches(t *testing.T) {
	client := &fakeEnrichmentClient{}
	svc := NewEnrichmentService(client, enrichmentOpts(), silentLogger())

	report, err := svc.Submit(context.Background(), buyerIDs(31))
	require.NoError(t, err)

	require.Len(t, client.batches, 3)
	require.Len(t, client.batches[0], 14)
	require.Len(t, client.batches[1], 14)
	require.Len(t, client.batches[2], 3)
	require.Equal(t, 31, report.Submitted)
	require.Equal(t, 3, report.Batches)
	require.Zero(t, report.FailedBatches)
	require.False(t, report.Aborted)
}

func TestEnrichmentService_FailFastAfterConsecutiveFailures(t *testing.T) {
	client := &fakeEnrichmentClient{failOn: map[int]bool{1: true, 2: true, 3: true}}
	svc := NewEnrichmentService(client, enrichmentOpts(), silentLogger())

	report, err := svc.Submit(context.Background(), buyerIDs(100))
	require.ErrorContains(t, err, "3 consecutive batch failures")
	require.True(t, report.Aborted)
	require.Len(t, client.batches, 3, "no batch is submitted after the abort threshold")
	require.Zero(t, report.Submitted)
}

func TestEnrichmentService_SuccessResetsFailureCounter(t *testing.T) {
	// Failures on batches 1, 2, 4 and 5 never reach three in a row because
	// batch 3 succeeds in between.
	client := &fakeEnrichmentClient{failOn: map[int]bool{1: true, 2: true, 4: true, 5: true}}
	svc := NewEnrichmentService(client, enrichmentOpts(), silentLogger())

	report, err := svc.Submit(context.Background(), buyerIDs(14*6))
	require.NoError(t, err)
	require.False(t, report.Aborted)
	require.Equal(t, 6, report.Batches)
	require.Equal(t, 4, report.FailedBatches)
	require.Equal(t, 14*2, report.Submitted)
}

func TestEnrichmentService_CancelStopsAfterCurrentBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeEnrichmentClient{cancelAfter: 2, cancel: cancel}
	svc := NewEnrichmentService(client, enrichmentOpts(), silentLogger())

	report, err := svc.Submit(ctx, buyerIDs(100))
	require.NoError(t, err, "cancellation is an outcome, not an error")
	require.True(t, report.Cancelled)
	require.Len(t, client.batches, 2, "the in-flight batch finishes, later batches never start")
	require.Equal(t, 28, report.Submitted, "submitted work is never reverted")
}

func TestEnrichmentService_EmptyInput(t *testing.T) {
	client := &fakeEnrichmentClient{}
	svc := NewEnrichmentService(client, enrichmentOpts(), silentLogger())

	report, err := svc.Submit(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, report.Batches)
	require.Empty(t, client.batches)
}
