package handler

import (
	"context"
	"net/http"

	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/pkg/models"
)

// TreeProvider builds the namespace tree visible to a tenant.
type TreeProvider interface {
	NamespaceTree(ctx context.Context, tenant string) ([]models.SchemaNode, error)
}

// NewSchemaTreeHandler returns an http.HandlerFunc for GET /api/v1/schema/tree.
func NewSchemaTreeHandler(svc TreeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		tree, err := svc.NamespaceTree(r.Context(), tenant)
		if err != nil {
			writeExecuteError(w, err)
			return
		}
		response.JSON(w, tree)
	}
}
