package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/presentation/controllers/dtos"
	"github.com/dealdesk/dealdesk/modules/crm/presentation/viewmodels"
	"github.com/dealdesk/dealdesk/modules/crm/services"
	"github.com/dealdesk/dealdesk/pkg/application"
	"github.com/dealdesk/dealdesk/pkg/composables"
	"github.com/dealdesk/dealdesk/pkg/configuration"
)

type RequestsController struct {
	app      application.Application
	requests *services.RequestService
	basePath string
}

func NewRequestsController(app application.Application) application.Controller {
	return &RequestsController{
		app:      app,
		requests: app.Service(services.RequestService{}).(*services.RequestService),
		basePath: "/crm/requests",
	}
}

func (c *RequestsController) Key() string {
	return c.basePath
}

func (c *RequestsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}/transition", c.Transition).Methods(http.MethodPost)
	router.HandleFunc("/{id}/stage", c.MoveToStage).Methods(http.MethodPut)
	router.HandleFunc("/{id}/comment", c.UpdateComment).Methods(http.MethodPut)
}

func (c *RequestsController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := &request.FindParams{
		SortBy:    request.SortBy(q.Get("sort")),
		Ascending: q.Get("order") == "asc",
	}
	for _, s := range q["status"] {
		status := request.Status(s)
		if !status.IsValid() {
			writeJSONError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status "+s)
			return
		}
		params.Statuses = append(params.Statuses, status)
	}
	var err error
	if params.StageIDs, err = parseUUIDList(q["stage_id"]); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "stage_id is not a uuid")
		return
	}
	if params.ListingIDs, err = parseUUIDList(q["listing_id"]); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "listing_id is not a uuid")
		return
	}

	filter, err := c.parseFilter(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}

	all, err := c.requests.ListDeals(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to list requests")
		writeServiceError(w, err)
		return
	}

	deals := filter.Apply(services.MatchParams(all, params))
	services.SortDeals(deals, params.SortBy, params.Ascending)

	page, limit := c.pagination(q.Get("page"), q.Get("limit"))
	total := len(deals)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  viewmodels.NewDealViews(deals[start:end]),
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (c *RequestsController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	deal, err := c.requests.DealByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.NewDealView(deal))
}

func (c *RequestsController) Create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateRequestDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	created, err := c.requests.Create(r.Context(), &request.ConnectionRequest{
		BuyerID:       dto.BuyerID,
		ListingID:     dto.ListingID,
		Status:        request.StatusPending,
		PriorityScore: dto.PriorityScore,
		SourceChannel: dto.SourceChannel,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewmodels.NewRequestView(created))
}

func (c *RequestsController) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.TransitionRequest
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	updated, err := c.requests.Transition(r.Context(), id, request.Status(dto.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.NewRequestView(updated))
}

func (c *RequestsController) MoveToStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.StageMoveRequest
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	updated, err := c.requests.MoveToStage(r.Context(), id, dto.StageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.NewRequestView(updated))
}

func (c *RequestsController) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.CommentRequest
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	updated, err := c.requests.UpdateComment(r.Context(), id, dto.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.NewRequestView(updated))
}

func (c *RequestsController) parseFilter(r *http.Request) (services.DealFilter, error) {
	q := r.URL.Query()
	conf := configuration.Use()
	filter := services.DealFilter{
		SearchText:    q.Get("search"),
		BuyerType:     q.Get("buyer_type"),
		Documents:     services.DocumentState(q.Get("documents")),
		DocumentFlags: conf.Pipeline.DocumentFlags,
	}
	if v := q.Get("listing"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.ListingID = &id
	}
	switch assigned := q.Get("assigned"); assigned {
	case "", "any":
	case "unassigned":
		filter.Assignment = services.AdminUnassigned
	case "me":
		actor, err := composables.UseActorID(r.Context())
		if err != nil {
			return filter, err
		}
		filter.Assignment = services.AdminSpecific
		filter.AdminID = actor
	default:
		id, err := uuid.Parse(assigned)
		if err != nil {
			return filter, err
		}
		filter.Assignment = services.AdminSpecific
		filter.AdminID = id
	}
	var err error
	if filter.CreatedFrom, err = parseTimePtr(q.Get("created_from")); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTimePtr(q.Get("created_to")); err != nil {
		return filter, err
	}
	if filter.DecisionFrom, err = parseTimePtr(q.Get("decision_from")); err != nil {
		return filter, err
	}
	if filter.DecisionTo, err = parseTimePtr(q.Get("decision_to")); err != nil {
		return filter, err
	}
	return filter, nil
}

func (c *RequestsController) pagination(pageStr, limitStr string) (int, int) {
	conf := configuration.Use()
	page, _ := strconv.Atoi(pageStr)
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(limitStr)
	if limit < 1 {
		limit = conf.PageSize
	}
	if limit > conf.MaxPageSize {
		limit = conf.MaxPageSize
	}
	return page, limit
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "id is not a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDList(values []string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseTimePtr(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
