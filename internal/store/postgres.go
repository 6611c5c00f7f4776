package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/querydojo/querydojo/internal/retry"
	"github.com/querydojo/querydojo/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. Catalog
// reads and writes go through the retry executor like every other
// privileged database call.
type PostgresStore struct {
	pool *pgxpool.Pool
	exec *retry.Executor
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, exec *retry.Executor) *PostgresStore {
	return &PostgresStore{pool: pool, exec: exec}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	return s.exec.Do(ctx, func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash)
			 VALUES ($1, $2, $3)
			 RETURNING id, created_at`,
			tenant.Name, tenant.Email, tenant.PasswordHash,
		).Scan(&tenant.ID, &tenant.CreatedAt)

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: tenant %s", ErrDuplicate, tenant.Name)
		}
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetTenantByName(ctx context.Context, name string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.exec.Do(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, created_at FROM users WHERE name = $1`,
			name,
		).Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.CreatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by name: %w", err)
	}
	return &t, nil
}

var _ Store = (*PostgresStore)(nil)
