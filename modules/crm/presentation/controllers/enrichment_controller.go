package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dealdesk/dealdesk/modules/crm/presentation/controllers/dtos"
	"github.com/dealdesk/dealdesk/modules/crm/services"
	"github.com/dealdesk/dealdesk/pkg/application"
	"github.com/dealdesk/dealdesk/pkg/composables"
)

type EnrichmentController struct {
	enrichment *services.EnrichmentService
	basePath   string
}

func NewEnrichmentController(app application.Application) application.Controller {
	return &EnrichmentController{
		enrichment: app.Service(services.EnrichmentService{}).(*services.EnrichmentService),
		basePath:   "/crm/enrichment",
	}
}

func (c *EnrichmentController) Key() string {
	return c.basePath
}

func (c *EnrichmentController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/submit", c.Submit).Methods(http.MethodPost)
}

// Submit feeds the given buyers to the enrichment endpoint. The run is
// synchronous: the report tells the caller exactly how far it got, and an
// aborted run still returns its partial report.
func (c *EnrichmentController) Submit(w http.ResponseWriter, r *http.Request) {
	if _, err := composables.UseActorID(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	var dto dtos.EnrichmentSubmitRequest
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	report, err := c.enrichment.Submit(r.Context(), dto.BuyerIDs)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("enrichment run aborted")
		writeJSON(w, http.StatusBadGateway, report)
		return
	}
	writeJSON(w, http.StatusAccepted, report)
}
