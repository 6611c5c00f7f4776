package handler

import (
	"net/http"
	"strconv"

	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/internal/history"
)

// NewQueryHistoryHandler returns an http.HandlerFunc for GET /api/v1/query-history.
func NewQueryHistoryHandler(hist history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer", nil)
				return
			}
			limit = n
		}

		records, err := hist.RecentQueries(r.Context(), tenant, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load query history", nil)
			return
		}
		response.JSON(w, records)
	}
}
