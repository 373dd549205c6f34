package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB and by the redis client adapter.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	DB    Pinger
	Redis Pinger // nil when redis is not configured
	Log   *zap.Logger
}

// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"db": "ok"}
	code := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.Warn("health: db ping failed", zap.Error(err))
		status["db"] = "down"
		code = http.StatusServiceUnavailable
	}
	if h.Redis != nil {
		status["redis"] = "ok"
		if err := h.Redis.PingContext(ctx); err != nil {
			h.Log.Warn("health: redis ping failed", zap.Error(err))
			status["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
}
