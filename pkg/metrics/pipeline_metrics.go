package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every pipeline metric plus the standard process and Go
// collectors; PrometheusController serves it.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

var (
	StatusTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_status_transitions_total",
		Help: "Connection request status transitions, by target status and outcome.",
	}, []string{"status", "outcome"})

	MutationRollbacks = factory.NewCounter(prometheus.CounterOpts{
		Name: "crm_mutation_rollbacks_total",
		Help: "Optimistic mutations rolled back after a failed persistence call.",
	})

	BulkFetchFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_bulk_fetch_failures_total",
		Help: "Failed bulk fetches during batch join assembly, by entity type.",
	}, []string{"entity"})

	BulkFetchCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_bulk_fetch_calls_total",
		Help: "Bulk fetch calls issued during batch join assembly, by entity type.",
	}, []string{"entity"})

	EnrichmentBatches = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_enrichment_batches_total",
		Help: "Enrichment batch submissions, by result.",
	}, []string{"result"})
)
