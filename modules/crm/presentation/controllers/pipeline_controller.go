package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dealdesk/dealdesk/modules/crm/presentation/viewmodels"
	"github.com/dealdesk/dealdesk/modules/crm/services"
	"github.com/dealdesk/dealdesk/pkg/application"
	"github.com/dealdesk/dealdesk/pkg/composables"
)

type PipelineController struct {
	pipeline *services.PipelineService
	basePath string
}

func NewPipelineController(app application.Application) application.Controller {
	return &PipelineController{
		pipeline: app.Service(services.PipelineService{}).(*services.PipelineService),
		basePath: "/crm/pipeline",
	}
}

func (c *PipelineController) Key() string {
	return c.basePath
}

func (c *PipelineController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/board", c.Board).Methods(http.MethodGet)
}

func (c *PipelineController) Board(w http.ResponseWriter, r *http.Request) {
	board, err := c.pipeline.Board(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to build pipeline board")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.NewBoardView(board))
}
