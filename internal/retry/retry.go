// Package retry wraps privileged database operations with bounded
// exponential backoff. Only connection-level transient failures are
// retried; every other error propagates on first occurrence.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTransient is returned after all attempts against a flapping
// connection have been exhausted.
var ErrTransient = errors.New("transient connection error")

const (
	maxAttempts     = 5
	initialInterval = 1 * time.Second
	maxInterval     = 10 * time.Second
	// Short pause preceding every retry, on top of the backoff wait.
	retryPause = 100 * time.Millisecond
)

// Executor retries an operation on transient connection errors.
// The zero value is not usable; construct with New.
type Executor struct {
	newBackOff func() backoff.BackOff
}

// Option configures an Executor.
type Option func(*Executor)

// WithBackOff overrides the backoff policy factory. Tests use this to
// avoid multi-second sleeps.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(e *Executor) { e.newBackOff = factory }
}

// New returns an Executor with the production backoff policy:
// exponential from 1s, capped at 10s.
func New(opts ...Option) *Executor {
	e := &Executor{
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initialInterval
			b.MaxInterval = maxInterval
			b.MaxElapsedTime = 0 // attempt count is the only bound
			return b
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do runs op, retrying up to 5 attempts when op fails with a transient
// connection error. Non-transient errors and context cancellation stop
// immediately. After exhausting attempts the last error is wrapped in
// ErrTransient.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	var lastErr error

	wrapped := func() error {
		attempt++
		if attempt > 1 {
			select {
			case <-time.After(retryPause):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		slog.Warn("transient database error, will retry",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), maxAttempts-1), ctx)
	err := backoff.Retry(wrapped, policy)
	if err == nil {
		return nil
	}

	// backoff.Retry already unwraps Permanent errors. Anything that is
	// not a transient failure keeps its identity; only genuine
	// exhaustion gets the ErrTransient tag.
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if !IsTransient(err) {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrTransient, attempt, lastErr)
}

// IsTransient reports whether err looks like a connection-level failure
// that a fresh attempt could resolve: network errors, closed or reset
// connections, and Postgres class 08 connection exceptions.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx: connection_exception family. 57P01/57P02/57P03:
		// server shutdown and connection-refused states.
		code := pgErr.Code
		return len(code) == 5 && (code[:2] == "08" ||
			code == "57P01" || code == "57P02" || code == "57P03")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
