package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"github.com/querydojo/querydojo/pkg/models"
)

// DuckDBBackend is the single-tenant analytical backend: one embedded
// DuckDB database, every caller operating in the main namespace. Batch
// semantics match the relational backend (all-or-nothing, quota on
// CREATE TABLE), without role provisioning or cross-tenant isolation.
type DuckDBBackend struct {
	db        *sql.DB
	maxTables int
}

const duckdbSchema = "main"

// NewDuckDBBackend opens (or creates) the DuckDB database at path;
// ":memory:" selects an in-memory database.
func NewDuckDBBackend(ctx context.Context, path string, maxTables int) (*DuckDBBackend, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &DuckDBBackend{db: db, maxTables: maxTables}, nil
}

// NewDuckDBBackendFromDB wraps an existing handle. Tests use this with a
// mocked database.
func NewDuckDBBackendFromDB(db *sql.DB, maxTables int) *DuckDBBackend {
	return &DuckDBBackend{db: db, maxTables: maxTables}
}

// Provision seeds the shared sample_users table when it is empty.
// DuckDB has no roles or row-level security; the single tenant owns the
// whole database file.
func (b *DuckDBBackend) Provision(ctx context.Context, _ string) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS main.sample_users (
			id INTEGER PRIMARY KEY,
			name VARCHAR,
			email VARCHAR,
			age INTEGER,
			city VARCHAR,
			registration_date DATE
		)`
	if _, err := b.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create sample table: %w", err)
	}

	seed := `
		INSERT INTO main.sample_users
		SELECT * FROM (VALUES
			(1, 'Alice Smith', 'alice@example.com', 28, 'New York', DATE '2023-01-15'),
			(2, 'Bob Johnson', 'bob@example.com', 35, 'Los Angeles', DATE '2023-02-20'),
			(3, 'Charlie Brown', 'charlie@example.com', 42, 'Chicago', DATE '2023-03-10'),
			(4, 'Diana Davis', 'diana@example.com', 31, 'Houston', DATE '2023-04-05'),
			(5, 'Eva Wilson', 'eva@example.com', 39, 'Phoenix', DATE '2023-05-22')
		) AS seed_rows(id, name, email, age, city, registration_date)
		WHERE NOT EXISTS (SELECT 1 FROM main.sample_users LIMIT 1)`
	if _, err := b.db.ExecContext(ctx, seed); err != nil {
		return fmt.Errorf("seed sample table: %w", err)
	}
	return nil
}

// Execute runs the batch in one transaction against the main namespace.
func (b *DuckDBBackend) Execute(ctx context.Context, _ string, batch string) ([]models.StatementResult, error) {
	stmts := SplitStatements(batch)
	if len(stmts) == 0 {
		return []models.StatementResult{}, nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	results := make([]models.StatementResult, 0, len(stmts))
	for _, stmt := range stmts {
		var res models.StatementResult
		var err error
		if IsCreateStatement(stmt) {
			res, err = b.runCreate(ctx, tx, stmt)
		} else {
			res, err = runSQLStatement(ctx, tx, stmt)
		}
		if err != nil {
			return nil, &StatementError{Statement: stmt, Err: err}
		}
		results = append(results, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return results, nil
}

func (b *DuckDBBackend) runCreate(ctx context.Context, tx *sql.Tx, stmt string) (models.StatementResult, error) {
	name, err := ExtractCreateTableName(stmt)
	if err != nil {
		return models.StatementResult{}, err
	}

	// The count runs on the batch transaction, so tables created earlier
	// in the same batch already count toward the quota. The in-memory
	// database has no separate catalog connection to read committed
	// state from, unlike the relational backend.
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ?`,
		duckdbSchema).Scan(&count)
	if err != nil {
		return models.StatementResult{}, fmt.Errorf("count tables: %w", err)
	}
	if count >= b.maxTables {
		return models.StatementResult{}, fmt.Errorf("%w: namespace already holds %d tables (maximum %d)",
			ErrQuotaExceeded, count, b.maxTables)
	}

	if _, err := tx.ExecContext(ctx, RewriteCreateTable(stmt, duckdbSchema, name)); err != nil {
		return models.StatementResult{}, err
	}
	return models.MessageResult(fmt.Sprintf("Table %s created successfully", name)), nil
}

// rowReturningKeywords lists the leading keywords of statements that
// produce a row set. database/sql cannot detect row sets after the fact
// the way pgx does, so the analytical backend routes on the keyword.
var rowReturningKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"FROM":     true, // duckdb's FROM-first syntax
}

func runSQLStatement(ctx context.Context, tx *sql.Tx, stmt string) (models.StatementResult, error) {
	if !rowReturningKeywords[strings.ToUpper(firstKeyword(stmt))] {
		res, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return models.StatementResult{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return models.MessageResult(fmt.Sprintf("%d rows affected", affected)), nil
	}

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return models.StatementResult{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return models.StatementResult{}, err
	}

	var data [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return models.StatementResult{}, err
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return models.StatementResult{}, err
	}
	return models.TableResult(columns, data), nil
}

// Tree describes the main namespace: tables and their columns.
func (b *DuckDBBackend) Tree(ctx context.Context, _ string) ([]models.SchemaNode, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`, duckdbSchema)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
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
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	return tree, nil
}

// Evict is a no-op: the embedded database has no per-tenant connections.
func (b *DuckDBBackend) Evict(string) {}

func (b *DuckDBBackend) EvictAll() {}

func (b *DuckDBBackend) Ping(ctx context.Context) error { return b.db.PingContext(ctx) }

func (b *DuckDBBackend) Close() { _ = b.db.Close() }

var _ Backend = (*DuckDBBackend)(nil)
