package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const tenantKey contextKey = "tenant"

func SetTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

func GetTenant(r *http.Request) (string, bool) {
	tenant, ok := r.Context().Value(tenantKey).(string)
	return tenant, ok
}
