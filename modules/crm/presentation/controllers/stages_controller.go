package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dealdesk/dealdesk/modules/crm/presentation/controllers/dtos"
	"github.com/dealdesk/dealdesk/modules/crm/services"
	"github.com/dealdesk/dealdesk/pkg/application"
)

type StagesController struct {
	stages   *services.StageService
	basePath string
}

func NewStagesController(app application.Application) application.Controller {
	return &StagesController{
		stages:   app.Service(services.StageService{}).(*services.StageService),
		basePath: "/crm/stages",
	}
}

func (c *StagesController) Key() string {
	return c.basePath
}

func (c *StagesController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/reorder", c.Reorder).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
}

func (c *StagesController) List(w http.ResponseWriter, r *http.Request) {
	var err error
	var result any
	if r.URL.Query().Get("active") == "true" {
		result, err = c.stages.GetActive(r.Context())
	} else {
		result, err = c.stages.GetAll(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *StagesController) Create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.StageDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	created, err := c.stages.Create(r.Context(), dto.ToEntity(uuid.Nil))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *StagesController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.StageDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	updated, err := c.stages.Update(r.Context(), dto.ToEntity(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (c *StagesController) Reorder(w http.ResponseWriter, r *http.Request) {
	var dto dtos.StageReorderRequest
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	if err := c.stages.Reorder(r.Context(), dto.StageIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (c *StagesController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := c.stages.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
