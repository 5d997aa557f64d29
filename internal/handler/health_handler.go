package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/elance/franquias-portal-go/internal/infra/observability"

	"go.uber.org/zap"
)

type serviceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Services  []serviceHealth `json:"services"`
	CheckedAt string          `json:"checked_at"`
}

func healthzHandler(ready func(context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []serviceHealth{{Name: "portal-api", Status: "healthy"}}
		overall := "healthy"

		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			start := time.Now()
			status := "healthy"
			if err := ready(ctx); err != nil {
				logger.Warn("store health check failed", zap.Error(err))
				status = "degraded"
				overall = "degraded"
			}
			services = append(services, serviceHealth{Name: "store", Status: status, LatencyMs: time.Since(start).Milliseconds()})
		}

		writeJSON(w, http.StatusOK, healthResponse{
			Status:    overall,
			Services:  services,
			CheckedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func readyzHandler(ready func(context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				logger.Warn("not ready", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsSnapshotHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSnapshot())
	}
}
