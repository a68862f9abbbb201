package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleHealth handles GET /healthz requests.
// Returns 200 OK if Redis is accessible, 503 Service Unavailable otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Redis:  "disconnected",
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Redis: "connected"})
}
