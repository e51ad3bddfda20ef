package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/koval01/telegram-gateway/internal/log"
	"github.com/koval01/telegram-gateway/internal/telegram"
)

// writeJSON writes a JSON response with the given status code.
// Note: if encoding fails after WriteHeader, the status is already on the
// wire; the error is logged and the body truncated.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, detail string) {
	writeJSON(w, status, ErrorResponse{Error: err, Detail: detail})
}

// writeBackendError maps the backend error taxonomy to HTTP statuses.
// Anything outside the taxonomy is a server error: logged, never swallowed,
// and never echoed to the client verbatim.
func writeBackendError(w http.ResponseWriter, logger log.Logger, err error) {
	switch {
	case errors.Is(err, telegram.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "this username does not exist")
	case errors.Is(err, telegram.ErrPrivate):
		writeError(w, http.StatusForbidden, "forbidden", "this chat is private")
	default:
		logger.Error("backend call failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backend_error", "backend request failed")
	}
}
