package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/internal/engine"
	"github.com/querydojo/querydojo/internal/ident"
	"github.com/querydojo/querydojo/internal/retry"
	"github.com/querydojo/querydojo/pkg/models"
)

// Executor runs SQL batches for a tenant.
type Executor interface {
	ExecuteBatch(ctx context.Context, tenant, sqlText string) ([]models.StatementResult, error)
}

// NewExecuteHandler returns an http.HandlerFunc for POST /api/v1/execute-sql.
func NewExecuteHandler(svc Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			SQL string `json:"sql"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.SQL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sql is required", nil)
			return
		}

		results, err := svc.ExecuteBatch(r.Context(), tenant, req.SQL)
		if err != nil {
			writeExecuteError(w, err)
			return
		}
		response.JSON(w, map[string]any{"results": results})
	}
}

// writeExecuteError maps engine errors onto HTTP responses. Statement
// failures include the offending SQL so the client can highlight it.
func writeExecuteError(w http.ResponseWriter, err error) {
	var stmtErr *engine.StatementError
	var details any
	if errors.As(err, &stmtErr) {
		details = map[string]string{"statement": stmtErr.Statement}
	}

	switch {
	case errors.Is(err, engine.ErrAuthenticationRequired):
		response.Error(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED",
			"No database credential for this session, log in again", nil)
	case errors.Is(err, engine.ErrQuotaExceeded):
		response.Error(w, http.StatusForbidden, "TABLE_QUOTA_EXCEEDED",
			"Table limit reached", details)
	case errors.Is(err, engine.ErrPermissionDenied):
		response.Error(w, http.StatusForbidden, "PERMISSION_DENIED",
			"Statement touches objects outside your namespace", details)
	case errors.Is(err, ident.ErrInvalidIdentifier):
		response.Error(w, http.StatusBadRequest, "INVALID_IDENTIFIER",
			err.Error(), details)
	case errors.Is(err, retry.ErrTransient):
		response.Error(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE",
			"Database connection is unavailable, try again", nil)
	case stmtErr != nil:
		response.Error(w, http.StatusBadRequest, "STATEMENT_FAILED",
			stmtErr.Err.Error(), details)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to execute SQL", nil)
	}
}
