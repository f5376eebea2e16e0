package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence"
	"github.com/dealdesk/dealdesk/modules/crm/presentation/controllers/dtos"
	"github.com/dealdesk/dealdesk/pkg/composables"
	"github.com/dealdesk/dealdesk/pkg/constants"
	"github.com/dealdesk/dealdesk/pkg/serrors"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, meta ...map[string]string) {
	payload := &dtos.APIError{
		Code:    code,
		Message: message,
	}
	if len(meta) > 0 && meta[0] != nil {
		payload.Meta = meta[0]
	}
	writeJSON(w, status, payload)
}

// decodeAndValidate parses the JSON body into dto and runs struct
// validation; on failure the response is already written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return false
	}
	if err := constants.Validate.Struct(dto); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
		return false
	}
	return true
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, composables.ErrNoActor):
		writeJSONError(w, http.StatusUnauthorized, "NO_ACTOR", "no acting admin identity resolved")
	case errors.Is(err, persistence.ErrRequestNotFound):
		writeJSONError(w, http.StatusNotFound, "REQUEST_NOT_FOUND", "connection request not found")
	case errors.Is(err, persistence.ErrStageNotFound):
		writeJSONError(w, http.StatusNotFound, "STAGE_NOT_FOUND", "pipeline stage not found")
	default:
		var base *serrors.Base
		if errors.As(err, &base) {
			writeJSONError(w, http.StatusBadRequest, base.Code, base.Message)
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
