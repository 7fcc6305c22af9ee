package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	PendingJobs   int    `json:"pending_jobs"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// JobCounter reports the number of armed scheduler jobs.
type JobCounter interface {
	Pending() int
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(s.startedAt) / time.Second),
		}
		if s.jobs != nil {
			resp.PendingJobs = s.jobs.Pending()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
