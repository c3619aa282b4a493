package http

import (
	"encoding/json"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/query"
)

type (
	listResponse struct {
		Items []core.Expense `json:"items"`
		Count int            `json:"count"`
		Sort  string         `json:"sort,omitempty"`
	}

	statsResponse struct {
		Window     core.TimeWindow       `json:"window"`
		Total      float64               `json:"total"`
		Count      int                   `json:"count"`
		Daily      []query.DayTotal      `json:"daily"`
		ByCategory []query.CategoryTotal `json:"by_category"`
		Items      []core.Expense        `json:"items"`
	}

	createResponse struct {
		ID string `json:"id"`
	}

	categoryResponse struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}

	errorResponse struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id,omitempty"`
	}
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to write response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
