package controllers

import (
	"net/http"

	"github.com/avilaromero/clientpulse-backend/api/responses"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
	"github.com/avilaromero/clientpulse-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClientPulse-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and Redis respond.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClientPulse-Env", cfg.App.Env)

		checks := map[string]string{"database": "ok", "redis": "ok"}
		healthy := true

		if dbP == nil {
			checks["database"] = "unconfigured"
			healthy = false
		} else if err := dbP.Ping(r.Context()); err != nil {
			checks["database"] = "unreachable"
			healthy = false
			if logg != nil {
				logg.Error(r.Context(), "health.database", err)
			}
		}

		if redisP == nil {
			checks["redis"] = "unconfigured"
			healthy = false
		} else if err := redisP.Ping(r.Context()); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
			if logg != nil {
				logg.Error(r.Context(), "health.redis", err)
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
