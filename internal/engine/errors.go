package engine

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAuthenticationRequired means no credential is available for the
	// tenant; the caller must log in again.
	ErrAuthenticationRequired = errors.New("authentication required: no credential for tenant")

	// ErrQuotaExceeded means the tenant already owns the maximum number
	// of tables in its namespace.
	ErrQuotaExceeded = errors.New("table quota exceeded")

	// ErrPermissionDenied is a privilege or isolation violation surfaced
	// by the database.
	ErrPermissionDenied = errors.New("permission denied")
)

// StatementError wraps a failure with the statement that triggered it,
// so callers can report the offending SQL alongside the typed error.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %q: %v", e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// classifyDBError maps database errors onto the engine taxonomy.
// SQLSTATE 42501 (insufficient_privilege) becomes ErrPermissionDenied;
// everything else passes through unchanged.
func classifyDBError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	}
	return err
}
