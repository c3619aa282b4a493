package http

import (
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.clock().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, struct {
		Requests  trace.Metrics              `json:"requests"`
		RateLimit ratelimit.Metrics          `json:"rate_limit"`
		Security  security.DetectionMetrics `json:"security"`
	}{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryResponse, len(core.Categories))
	for i, c := range core.Categories {
		out[i] = categoryResponse{Name: string(c), Icon: core.IconFor(c)}
	}
	writeJSON(w, r, http.StatusOK, out)
}
