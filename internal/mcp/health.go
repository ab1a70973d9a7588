package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bull/legalqa-server/internal/qa"
)

// NewHealthHandler creates an HTTP handler for the /health endpoint
// mounted beside /mcp. It runs the pipeline's component probes and
// maps a degraded aggregate to 503.
func NewHealthHandler(service *qa.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		health := service.HealthCheck(ctx)

		w.Header().Set("Content-Type", "application/json")
		if health.Overall != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}
