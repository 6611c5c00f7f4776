package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/querydojo/querydojo/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastExecutor retries without the production sleeps.
func fastExecutor() *retry.Executor {
	return retry.New(retry.WithBackOff(func() backoff.BackOff {
		return &backoff.ZeroBackOff{}
	}))
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	e := fastExecutor()
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversOnFifthAttempt(t *testing.T) {
	e := fastExecutor()
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 5 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
}

func TestDo_ExhaustsAfterFiveAttempts(t *testing.T) {
	e := fastExecutor()
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return syscall.ECONNRESET
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, retry.ErrTransient))
	assert.True(t, errors.Is(err, syscall.ECONNRESET), "exhaustion must keep the last error's identity")
	assert.Equal(t, 5, calls)
}

func TestDo_PreservesWrappedSentinel(t *testing.T) {
	e := fastExecutor()
	sentinel := errors.New("resource not found")
	err := e.Do(context.Background(), func(context.Context) error {
		return fmt.Errorf("get question: %w", sentinel)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, retry.ErrTransient))
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	e := fastExecutor()
	boom := errors.New("syntax error")
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, retry.ErrTransient))
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancellationStopsRetrying(t *testing.T) {
	e := fastExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := e.Do(ctx, func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return io.ErrUnexpectedEOF
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, calls, 3)
}

func TestDo_RetryPauseRespectsDeadline(t *testing.T) {
	e := fastExecutor()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Do(ctx, func(context.Context) error {
		return io.ErrUnexpectedEOF
	})
	require.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"unexpected EOF", io.ErrUnexpectedEOF, true},
		{"pg connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"pg insufficient privilege", &pgconn.PgError{Code: "42501"}, false},
		{"plain error", errors.New("nope"), false},
		{"context canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, retry.IsTransient(tt.err))
		})
	}
}
