package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
)

// TenantConn is one cached tenant-privileged connection. Connections are
// single-writer: callers hold mu for the duration of a batch so
// interleaved search-path and transaction state cannot corrupt results.
type TenantConn struct {
	mu          sync.Mutex
	conn        *pgx.Conn
	tenant      string
	fingerprint string
}

// ConnectionManager owns one database connection per (tenant, credential)
// pair. Connections are opened lazily with the tenant's own role, cached,
// and re-created when the credential changes. The cache map has its own
// mutex; holding it never blocks another tenant's in-flight statements.
type ConnectionManager struct {
	baseURL string
	creds   *CredentialProvider

	mu    sync.Mutex
	conns map[string]*TenantConn
}

// NewConnectionManager creates a ConnectionManager. baseURL is the
// superuser DSN; tenant connections reuse its host, port and database
// but authenticate with the tenant's role and credential.
func NewConnectionManager(baseURL string, creds *CredentialProvider) *ConnectionManager {
	return &ConnectionManager{
		baseURL: baseURL,
		creds:   creds,
		conns:   make(map[string]*TenantConn),
	}
}

// Acquire returns the tenant's cached connection, opening one on first
// use. Fails with ErrAuthenticationRequired when no credential is
// available. A credential change evicts the stale connection and opens a
// fresh one.
func (m *ConnectionManager) Acquire(ctx context.Context, tenant string) (*TenantConn, error) {
	credential, ok := m.creds.Get(tenant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAuthenticationRequired, tenant)
	}
	fp := Fingerprint(credential)

	m.mu.Lock()
	if tc, ok := m.conns[tenant]; ok && tc.fingerprint == fp {
		m.mu.Unlock()
		return tc, nil
	}
	m.mu.Unlock()

	// Dial outside the cache lock so a slow connect for one tenant does
	// not block acquisitions for others.
	cfg, err := pgx.ParseConfig(m.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.User = tenant
	cfg.Password = credential

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect as tenant %s: %w", tenant, err)
	}

	fresh := &TenantConn{conn: conn, tenant: tenant, fingerprint: fp}

	m.mu.Lock()
	if existing, ok := m.conns[tenant]; ok {
		if existing.fingerprint == fp {
			// Lost the race; keep the existing connection.
			m.mu.Unlock()
			_ = conn.Close(ctx)
			return existing, nil
		}
		// Credential changed under us; retire the stale connection.
		go closeConn(existing)
	}
	m.conns[tenant] = fresh
	m.mu.Unlock()
	return fresh, nil
}

// Evict closes and removes the tenant's cached connection. Called on
// logout, credential change, or after a connection-level failure.
func (m *ConnectionManager) Evict(tenant string) {
	m.mu.Lock()
	tc, ok := m.conns[tenant]
	delete(m.conns, tenant)
	m.mu.Unlock()
	if ok {
		closeConn(tc)
	}
}

// Discard removes and closes a connection whose batch lock the caller
// already holds. Evict would block on that same lock, so the lock holder
// must use this instead.
func (m *ConnectionManager) Discard(tc *TenantConn) {
	m.mu.Lock()
	if cur, ok := m.conns[tc.tenant]; ok && cur == tc {
		delete(m.conns, tc.tenant)
	}
	m.mu.Unlock()

	if tc.conn == nil {
		return
	}
	if err := tc.conn.Close(context.Background()); err != nil {
		slog.Warn("closing tenant connection", "tenant", tc.tenant, "error", err)
	}
	tc.conn = nil
}

// EvictAll clears the entire cache (process-wide credential reset).
func (m *ConnectionManager) EvictAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*TenantConn)
	m.mu.Unlock()
	for _, tc := range conns {
		closeConn(tc)
	}
}

// closeConn waits for any in-flight batch on the connection to finish,
// then closes it.
func closeConn(tc *TenantConn) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.conn == nil {
		return
	}
	if err := tc.conn.Close(context.Background()); err != nil {
		slog.Warn("closing tenant connection", "tenant", tc.tenant, "error", err)
	}
	tc.conn = nil
}
