package handler

import (
	"context"
	"net/http"

	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/internal/cache"
)

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
func NewHealthHandler(db Pinger, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"status":   "ok",
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
		}
		if c != nil {
			if err := c.Ping(r.Context()); err != nil {
				status["status"] = "degraded"
				status["cache"] = "unreachable"
			}
		}

		if status["status"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED", "One or more dependencies are unavailable", status)
			return
		}
		response.JSON(w, status)
	}
}
