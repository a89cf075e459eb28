package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Checks))

	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			h.Logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}

	h.respondJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}
