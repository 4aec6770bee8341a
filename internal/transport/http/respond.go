package http

import (
	"encoding/json"
	"net/http"

	"live-session-service/internal/domain"
)

// envelope is the uniform mutation response: the payload plus the exact
// set of entities whose cached projections are now stale.
type envelope struct {
	Data                any                        `json:"data"`
	InvalidatedEntities []domain.InvalidatedEntity `json:"invalidatedEntities"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any, invalidated []domain.InvalidatedEntity) {
	if invalidated == nil {
		invalidated = []domain.InvalidatedEntity{}
	}
	writeJSON(w, http.StatusOK, envelope{Data: data, InvalidatedEntities: invalidated})
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	writeJSON(w, statusFor(code), errorBody{Error: errorPayload{Code: code, Message: err.Error()}})
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeAuth:
		return http.StatusUnauthorized
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeState, domain.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
