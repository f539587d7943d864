package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/cache"
)

// Health implements GET /health (spec §6.1): liveness, 200 iff the process
// is up. It never depends on any external collaborator.
type Health struct {
	Store  *cache.Manager
	Logger *zap.Logger
}

func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness implements GET /ready: 200 iff the store is connected, 503
// otherwise (spec §6.1, §5 "process continues degraded, GET /ready returns
// not-ready"). A nil Store means the process started in degraded mode.
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "reason": "store not connected"})
		return
	}
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Logger.Warn("readiness_ping_failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "reason": "store ping failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
