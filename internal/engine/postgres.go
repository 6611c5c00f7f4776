package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/querydojo/querydojo/internal/retry"
	"github.com/querydojo/querydojo/pkg/models"
)

// PostgresBackend is the multi-tenant relational backend: one private
// schema per tenant on a shared database, tenant-privileged connections,
// and superuser catalog operations behind the retry executor.
type PostgresBackend struct {
	pool      *pgxpool.Pool
	conns     *ConnectionManager
	prov      *Provisioner
	exec      *retry.Executor
	maxTables int
}

// NewPostgresBackend wires the backend from its collaborators.
func NewPostgresBackend(pool *pgxpool.Pool, conns *ConnectionManager, prov *Provisioner, exec *retry.Executor, maxTables int) *PostgresBackend {
	return &PostgresBackend{
		pool:      pool,
		conns:     conns,
		prov:      prov,
		exec:      exec,
		maxTables: maxTables,
	}
}

func (b *PostgresBackend) Provision(ctx context.Context, tenant string) error {
	return b.prov.Ensure(ctx, tenant)
}

// Provisioner exposes the underlying provisioner for role management.
func (b *PostgresBackend) Provisioner() *Provisioner { return b.prov }

func (b *PostgresBackend) Evict(tenant string) { b.conns.Evict(tenant) }

func (b *PostgresBackend) EvictAll() { b.conns.EvictAll() }

func (b *PostgresBackend) Ping(ctx context.Context) error { return b.pool.Ping(ctx) }

func (b *PostgresBackend) Close() {
	b.conns.EvictAll()
	b.pool.Close()
}

// Execute runs the batch on the tenant's own connection inside a single
// transaction. The connection is locked for the whole batch; a failure
// anywhere rolls everything back and the typed error carries the
// offending statement.
func (b *PostgresBackend) Execute(ctx context.Context, tenant, batch string) ([]models.StatementResult, error) {
	stmts := SplitStatements(batch)
	if len(stmts) == 0 {
		return []models.StatementResult{}, nil
	}

	tc, err := b.acquireLocked(ctx, tenant)
	if err != nil {
		return nil, err
	}
	defer tc.mu.Unlock()

	results, err := b.runBatch(ctx, tc.conn, tenant, stmts)
	if err != nil {
		// A broken or deadline-aborted connection is left in an unknown
		// state; discard it rather than reuse it. Evict would block on
		// the batch lock this goroutine still holds.
		if retry.IsTransient(err) || ctx.Err() != nil {
			b.conns.Discard(tc)
		}
		return nil, err
	}
	return results, nil
}

// acquireLocked acquires the tenant connection and locks it, re-dialing
// once if an eviction raced with the acquisition.
func (b *PostgresBackend) acquireLocked(ctx context.Context, tenant string) (*TenantConn, error) {
	for i := 0; i < 2; i++ {
		tc, err := b.conns.Acquire(ctx, tenant)
		if err != nil {
			return nil, err
		}
		tc.mu.Lock()
		if tc.conn != nil {
			return tc, nil
		}
		tc.mu.Unlock()
	}
	return nil, fmt.Errorf("acquire connection for %s: connection evicted concurrently", tenant)
}

func (b *PostgresBackend) runBatch(ctx context.Context, conn *pgx.Conn, tenant string, stmts []string) ([]models.StatementResult, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	schema := schemaName(tenant)

	// Active namespace search order: [tenant namespace, public].
	// SET LOCAL keeps the connection clean after commit or rollback.
	setPath := fmt.Sprintf(`SET LOCAL search_path TO %s, public`, pgx.Identifier{schema}.Sanitize())
	if _, err := tx.Exec(ctx, setPath); err != nil {
		return nil, fmt.Errorf("set search path: %w", err)
	}
	// Session-scoped current tenant, the second line of defense behind
	// the row-level security policies.
	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true)`, tenant); err != nil {
		return nil, fmt.Errorf("set current tenant: %w", err)
	}

	results := make([]models.StatementResult, 0, len(stmts))
	for _, stmt := range stmts {
		var res models.StatementResult
		var err error
		if IsCreateStatement(stmt) {
			res, err = b.runCreate(ctx, tx, tenant, schema, stmt)
		} else {
			res, err = runStatement(ctx, tx, stmt)
		}
		if err != nil {
			return nil, &StatementError{Statement: stmt, Err: classifyDBError(err)}
		}
		results = append(results, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return results, nil
}

// runCreate validates, quota-checks and rewrites a namespace-creating
// statement before executing it inside the tenant namespace.
func (b *PostgresBackend) runCreate(ctx context.Context, tx pgx.Tx, tenant, schema, stmt string) (models.StatementResult, error) {
	name, err := ExtractCreateTableName(stmt)
	if err != nil {
		return models.StatementResult{}, err
	}

	count, err := b.prov.TableCount(ctx, tenant)
	if err != nil {
		return models.StatementResult{}, err
	}
	if count >= b.maxTables {
		return models.StatementResult{}, fmt.Errorf("%w: namespace already holds %d tables (maximum %d)",
			ErrQuotaExceeded, count, b.maxTables)
	}

	if _, err := tx.Exec(ctx, RewriteCreateTable(stmt, schema, name)); err != nil {
		return models.StatementResult{}, err
	}
	return models.MessageResult(fmt.Sprintf("Table %s created successfully", name)), nil
}

// runStatement executes a non-rewritten statement and shapes its result:
// a table result for row sets, a rows-affected message otherwise.
func runStatement(ctx context.Context, tx pgx.Tx, stmt string) (models.StatementResult, error) {
	rows, err := tx.Query(ctx, stmt)
	if err != nil {
		return models.StatementResult{}, err
	}

	fds := rows.FieldDescriptions()
	if len(fds) == 0 {
		rows.Close()
		if err := rows.Err(); err != nil {
			return models.StatementResult{}, err
		}
		tag := rows.CommandTag()
		return models.MessageResult(fmt.Sprintf("%d rows affected", tag.RowsAffected())), nil
	}

	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
	}

	var data [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			rows.Close()
			return models.StatementResult{}, err
		}
		data = append(data, vals)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.StatementResult{}, err
	}
	return models.TableResult(columns, data), nil
}

// Tree builds the namespace tree visible to the tenant (its private
// schema plus public) using the tenant's own connection, so the catalog
// itself enforces visibility.
func (b *PostgresBackend) Tree(ctx context.Context, tenant string) ([]models.SchemaNode, error) {
	tc, err := b.acquireLocked(ctx, tenant)
	if err != nil {
		return nil, err
	}
	defer tc.mu.Unlock()

	schemas := []string{schemaName(tenant), "public"}

	rows, err := tc.conn.Query(ctx, `
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ANY($1)
		ORDER BY table_schema DESC, table_name, ordinal_position`, schemas)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", classifyDBError(err))
	}
	defer rows.Close()

	tree := []models.SchemaNode{}
	for rows.Next() {
		var schema, table, column, dataType string
		if err := rows.Scan(&schema, &table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		appendColumn(&tree, schema, table, column, dataType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect schema: %w", classifyDBError(err))
	}
	return tree, nil
}

// appendColumn inserts a column into the tree, creating the schema and
// table nodes on first sight. Input arrives grouped by schema and table.
func appendColumn(tree *[]models.SchemaNode, schema, table, column, dataType string) {
	t := *tree
	if len(t) == 0 || t[len(t)-1].ID != "schema-"+schema {
		t = append(t, models.SchemaNode{ID: "schema-" + schema, Label: schema})
	}
	s := &t[len(t)-1]

	tableID := fmt.Sprintf("table-%s-%s", schema, table)
	if len(s.Children) == 0 || s.Children[len(s.Children)-1].ID != tableID {
		s.Children = append(s.Children, models.SchemaNode{ID: tableID, Label: table})
	}
	tbl := &s.Children[len(s.Children)-1]

	tbl.Children = append(tbl.Children, models.SchemaNode{
		ID:    fmt.Sprintf("column-%s-%s-%s", schema, table, column),
		Label: fmt.Sprintf("%s (%s)", column, dataType),
	})
	*tree = t
}

var _ Backend = (*PostgresBackend)(nil)
