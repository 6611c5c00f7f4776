package engine

import (
	"context"

	"github.com/querydojo/querydojo/pkg/models"
)

// Backend is the execution capability every storage engine provides:
// namespace provisioning, batch execution, and schema introspection.
// There are two implementations: the multi-tenant relational backend
// (Postgres, schema-per-tenant) and the single-tenant analytical
// backend (DuckDB).
type Backend interface {
	// Provision idempotently creates the tenant's namespace and seed data.
	Provision(ctx context.Context, tenant string) error

	// Execute runs a SQL batch in the tenant's namespace and returns one
	// result per statement in source order. Batches are all-or-nothing:
	// any failure rolls back every statement.
	Execute(ctx context.Context, tenant, batch string) ([]models.StatementResult, error)

	// Tree describes the namespaces visible to the tenant:
	// namespaces -> tables -> columns.
	Tree(ctx context.Context, tenant string) ([]models.SchemaNode, error)

	// Evict closes and removes the tenant's cached connection, if any.
	Evict(tenant string)

	// EvictAll clears every cached connection.
	EvictAll()

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases all backend resources.
	Close()
}
