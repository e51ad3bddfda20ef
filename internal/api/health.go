package api

import (
	"net/http"

	"github.com/koval01/telegram-gateway/internal/log"
)

// healthHandler probes the backend session.
type healthHandler struct {
	backend Backend
	logger  log.Logger
}

// healthz performs an identity probe against the backend session. An empty
// 200 signals a healthy session; 503 tells the orchestrator to restart or
// reschedule the process.
func (h *healthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Me(r.Context()); err != nil {
		h.logger.Error("health probe failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "unhealthy", "backend session is not available")
		return
	}
	w.WriteHeader(http.StatusOK)
}
