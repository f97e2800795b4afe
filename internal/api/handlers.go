package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker is implemented by *db.Postgres
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	LastRefresh *time.Time        `json:"lastRefresh,omitempty"`
	Services    map[string]string `json:"services"`
}

// NewHealthHandler reports the backlog and, when configured, the database.
// Only an unreachable database degrades the service: a backlog that has not
// been built yet is reported but still answers 200.
func NewHealthHandler(database HealthChecker, provider BacklogProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Services:  make(map[string]string),
		}

		if database != nil {
			if err := database.Health(r.Context()); err != nil {
				slog.Error("Database health check failed", "error", err)
				resp.Services["database"] = "unhealthy"
				resp.Status = "degraded"
			} else {
				resp.Services["database"] = "healthy"
			}
		}

		resp.Services["backlog"] = "pending"
		if result := provider.Latest(); result != nil {
			resp.Services["backlog"] = "ready"
			fetched := result.FetchedAt
			resp.LastRefresh = &fetched
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		respondJSON(w, code, resp)
	}
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
