package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/store"
)

// HealthHandler reports database reachability and the mirror backlog.
type HealthHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// Get handles GET /api/health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		h.Log.Error("health check: database unreachable", zap.Error(err))
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	stats, err := store.GetOutboxStats(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	status := "ok"
	if stats.Dead > 0 {
		status = "degraded"
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":         status,
		"mirror_pending": stats.Pending,
		"mirror_dead":    stats.Dead,
	})
}
