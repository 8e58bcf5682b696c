package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/palletworks/palletworks-backend/api/responses"
	"github.com/palletworks/palletworks-backend/pkg/config"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports process liveness plus dependency reachability.
func Healthz(cfg *config.Config, logg *logger.Logger, db pinger, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		for name, dep := range map[string]pinger{"database": db, "redis": redis} {
			if dep == nil {
				checks[name] = "not configured"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"checks": checks}), "health check degraded")
			}
		}

		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}
