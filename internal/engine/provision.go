package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/querydojo/querydojo/internal/ident"
	"github.com/querydojo/querydojo/internal/retry"
)

// Provisioner idempotently creates a tenant's login principal, private
// namespace, grants and seed data. Every step is safe to re-run. All
// privileged calls go through the retry executor.
type Provisioner struct {
	pool *pgxpool.Pool
	exec *retry.Executor
}

// NewProvisioner creates a Provisioner over the superuser pool.
func NewProvisioner(pool *pgxpool.Pool, exec *retry.Executor) *Provisioner {
	return &Provisioner{pool: pool, exec: exec}
}

// EnsureRole creates the tenant's login role if it does not exist.
// Role names pass through ident.Validate before touching any DDL.
func (p *Provisioner) EnsureRole(ctx context.Context, tenant, credential string) error {
	if err := ident.Validate(tenant); err != nil {
		return err
	}
	return p.exec.Do(ctx, func(ctx context.Context) error {
		var exists bool
		err := p.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, tenant).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check role %s: %w", tenant, err)
		}
		if exists {
			return nil
		}
		// Role DDL cannot be parameterized; the name is validated above
		// and the credential goes through literal quoting.
		_, err = p.pool.Exec(ctx, fmt.Sprintf(`CREATE ROLE %s LOGIN PASSWORD %s`,
			pgx.Identifier{tenant}.Sanitize(), quoteLiteral(credential)))
		if err != nil {
			return fmt.Errorf("create role %s: %w", tenant, err)
		}
		slog.Info("created tenant role", "tenant", tenant)
		return nil
	})
}

// Ensure creates the tenant's private namespace, ownership grants,
// isolation policy, and seed data. Idempotent: re-running never
// duplicates seed rows or fails on already-granted privileges.
func (p *Provisioner) Ensure(ctx context.Context, tenant string) error {
	if err := ident.Validate(tenant); err != nil {
		return err
	}
	if err := p.ensureSchema(ctx, tenant); err != nil {
		return err
	}
	return p.ensureSeedTable(ctx, tenant)
}

func (p *Provisioner) ensureSchema(ctx context.Context, tenant string) error {
	role := pgx.Identifier{tenant}.Sanitize()
	schema := pgx.Identifier{schemaName(tenant)}.Sanitize()

	steps := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s`, schema, role),
		fmt.Sprintf(`GRANT ALL ON SCHEMA %s TO %s`, schema, role),
		fmt.Sprintf(`ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT ALL ON TABLES TO %s`, schema, role),
		fmt.Sprintf(`ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT ALL ON SEQUENCES TO %s`, schema, role),
	}
	return p.exec.Do(ctx, func(ctx context.Context) error {
		for _, step := range steps {
			if _, err := p.pool.Exec(ctx, step); err != nil {
				return fmt.Errorf("provision schema for %s: %w", tenant, err)
			}
		}
		return nil
	})
}

// ensureSeedTable creates the sample_users table inside the tenant
// namespace with row-level security keyed by the session-scoped current
// tenant setting, and seeds it with fixed rows only when empty.
func (p *Provisioner) ensureSeedTable(ctx context.Context, tenant string) error {
	schema := schemaName(tenant)
	table := pgx.Identifier{schema, "sample_users"}.Sanitize()
	policy := tenant + "_own_data_policy"

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100),
			email VARCHAR(100),
			age INTEGER,
			city VARCHAR(100),
			registration_date DATE
		)`, table)

	enableRLS := fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, table)

	createPolicy := fmt.Sprintf(`
		DO $policy$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_policies
				WHERE schemaname = %s AND tablename = 'sample_users' AND policyname = %s
			) THEN
				CREATE POLICY %s ON %s
					FOR ALL
					USING (current_setting('app.current_tenant', true) = %s);
			END IF;
		END
		$policy$`,
		quoteLiteral(schema), quoteLiteral(policy),
		pgx.Identifier{policy}.Sanitize(), table, quoteLiteral(tenant))

	seed := fmt.Sprintf(`
		INSERT INTO %s (name, email, age, city, registration_date)
		SELECT * FROM (VALUES
			('Alice Smith', 'alice@example.com', 28, 'New York', '2023-01-15'::DATE),
			('Bob Johnson', 'bob@example.com', 35, 'Los Angeles', '2023-02-20'::DATE),
			('Charlie Brown', 'charlie@example.com', 42, 'Chicago', '2023-03-10'::DATE),
			('Diana Davis', 'diana@example.com', 31, 'Houston', '2023-04-05'::DATE),
			('Eva Wilson', 'eva@example.com', 39, 'Phoenix', '2023-05-22'::DATE)
		) AS seed_rows(name, email, age, city, registration_date)
		WHERE NOT EXISTS (SELECT 1 FROM %s LIMIT 1)`, table, table)

	return p.exec.Do(ctx, func(ctx context.Context) error {
		for _, step := range []string{createTable, enableRLS, createPolicy, seed} {
			if _, err := p.pool.Exec(ctx, step); err != nil {
				return fmt.Errorf("seed tenant %s: %w", tenant, err)
			}
		}
		return nil
	})
}

// TableCount recomputes the number of tables the tenant owns in its
// namespace. Derived on demand, never cached across mutations.
func (p *Provisioner) TableCount(ctx context.Context, tenant string) (int, error) {
	var count int
	err := p.exec.Do(ctx, func(ctx context.Context) error {
		return p.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1`,
			schemaName(tenant)).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count tables for %s: %w", tenant, err)
	}
	return count, nil
}

// schemaName returns the tenant's private namespace following the fixed
// user_<tenant> convention.
func schemaName(tenant string) string {
	return "user_" + tenant
}

// quoteLiteral renders s as a SQL string literal, doubling embedded
// quotes. Used only where DDL cannot take bind parameters.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, "\x00", ""), "'", "''") + "'"
}
