package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"kids-content-billing/internal/domain"
)

// Envelope is the response convention shared with the rest of the platform.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   []string `json:"error,omitempty"`
	Message string   `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

func created(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

func fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Success: false, Error: []string{message}, Message: message})
}

// failFromErr maps domain errors to status codes without leaking internals.
func failFromErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		fail(w, http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, domain.ErrInvalidArgument):
		fail(w, http.StatusBadRequest, "insufficient data")
	case errors.Is(err, domain.ErrAlreadySubscribed):
		fail(w, http.StatusConflict, "already subscribed")
	case errors.Is(err, domain.ErrTrialNotAvailable):
		fail(w, http.StatusConflict, "trial not available")
	case errors.Is(err, domain.ErrNotFound):
		fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidCredential):
		fail(w, http.StatusUnauthorized, "invalid credential")
	case errors.Is(err, domain.ErrGatewayTimeout), errors.Is(err, domain.ErrGatewayUnavailable):
		fail(w, http.StatusServiceUnavailable, "payment service unavailable")
	case errors.Is(err, domain.ErrConflict):
		fail(w, http.StatusConflict, "conflicting update")
	default:
		fail(w, http.StatusInternalServerError, "internal error")
	}
}
