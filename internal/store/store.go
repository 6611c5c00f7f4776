package store

import (
	"context"
	"errors"

	"github.com/querydojo/querydojo/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicate = errors.New("duplicate key violation")

// Store is the tenant catalog interface. All catalog operations go
// through here; execution-facing data lives behind the history store.
type Store interface {
	Ping(ctx context.Context) error

	// CreateTenant registers a tenant. PasswordHash must already be a
	// bcrypt hash; the raw credential never reaches the catalog.
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenantByName(ctx context.Context, name string) (*models.Tenant, error)
}
