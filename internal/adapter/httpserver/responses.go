// Package httpserver exposes the REST surface: evaluation worker endpoints,
// execution queue, billing, reports, the scraper webhook and auth. Handlers
// translate between JSON and the usecase services; business rules stay below.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details any) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusUnprocessableEntity
		code = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		code = "CONFLICT"
	case errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
		code = "INSUFFICIENT_BALANCE"
	case errors.Is(err, domain.ErrUpstreamAuth):
		status = http.StatusBadGateway
		code = "UPSTREAM_AUTH"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		status = http.StatusServiceUnavailable
		code = "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
		code = "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		status = http.StatusBadGateway
		code = "UPSTREAM_UNREACHABLE"
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: err.Error(), Details: details}})
}
