package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/votsa/ssr/internal/continuation"
	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/search"
)

// UnavailableMessage is shown when the upstream cannot produce results.
const UnavailableMessage = "results unavailable, try again"

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields []string          `json:"fields,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, msg string, meta map[string]string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Meta: meta})
}

func BadRequest(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusBadRequest, msg, meta)
}

func NotFound(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusNotFound, msg, meta)
}

func Conflict(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusConflict, msg, meta)
}

func BadGateway(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusBadGateway, msg, meta)
}

func GatewayTimeout(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusGatewayTimeout, msg, meta)
}

func InternalError(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusInternalServerError, msg, meta)
}

func TooManyRequests(w http.ResponseWriter, msg string, meta map[string]string) {
	WriteError(w, http.StatusTooManyRequests, msg, meta)
}

// writeServiceError maps domain errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, meta map[string]string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid search parameters", Fields: verr.Fields, Meta: meta})
	case errors.Is(err, search.ErrAnchorMode):
		BadRequest(w, err.Error(), meta)
	case errors.Is(err, continuation.ErrSessionNotFound):
		NotFound(w, err.Error(), meta)
	case errors.Is(err, continuation.ErrLoadInProgress),
		errors.Is(err, continuation.ErrExhausted),
		errors.Is(err, continuation.ErrNotStarted):
		Conflict(w, err.Error(), meta)
	case search.IsUpstream(err):
		BadGateway(w, UnavailableMessage, meta)
	case errors.Is(err, context.DeadlineExceeded):
		GatewayTimeout(w, UnavailableMessage, meta)
	default:
		InternalError(w, "internal error", meta)
	}
}
