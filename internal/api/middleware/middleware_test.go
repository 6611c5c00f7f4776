package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Cache ---

type mockCache struct {
	counter int64
	err     error
}

func (m *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (m *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (m *mockCache) Delete(_ context.Context, _ string) error                         { return nil }
func (m *mockCache) Ping(_ context.Context) error                                     { return nil }
func (m *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counter++
	return m.counter, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, _ := mw.GetTenant(r)
		w.Write([]byte(tenant))
	})
}

// --- Sessions ---

func TestSessionsIssueAndVerify(t *testing.T) {
	s := mw.NewSessions("test-secret", time.Minute)

	token, err := s.Issue("alice", engine.Fingerprint("hunter2"))
	require.NoError(t, err)

	tenant, fingerprint, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", tenant)
	assert.Equal(t, engine.Fingerprint("hunter2"), fingerprint)
}

func TestSessionsRejectsExpiredToken(t *testing.T) {
	s := mw.NewSessions("test-secret", -time.Minute)

	token, err := s.Issue("alice", "fp")
	require.NoError(t, err)

	_, _, err = s.Verify(token)
	assert.ErrorIs(t, err, mw.ErrInvalidSession)
}

func TestSessionsRejectsWrongSecret(t *testing.T) {
	token, err := mw.NewSessions("secret-a", time.Minute).Issue("alice", "fp")
	require.NoError(t, err)

	_, _, err = mw.NewSessions("secret-b", time.Minute).Verify(token)
	assert.ErrorIs(t, err, mw.ErrInvalidSession)
}

// --- Auth ---

func newAuth(t *testing.T) (*mw.Auth, *mw.Sessions, *engine.CredentialProvider) {
	t.Helper()
	sessions := mw.NewSessions("test-secret", time.Minute)
	creds := engine.NewCredentialProvider()
	return mw.NewAuth(sessions, creds), sessions, creds
}

func TestAuthenticateSuccess(t *testing.T) {
	auth, sessions, creds := newAuth(t)
	creds.Set("alice", "hunter2")
	token, err := sessions.Issue("alice", engine.Fingerprint("hunter2"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	auth.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestAuthenticateMissingHeader(t *testing.T) {
	auth, _, _ := newAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	auth.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	auth, _, _ := newAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()

	auth.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateRevokedAfterLogout(t *testing.T) {
	auth, sessions, creds := newAuth(t)
	creds.Set("alice", "hunter2")
	token, err := sessions.Issue("alice", engine.Fingerprint("hunter2"))
	require.NoError(t, err)

	// logout clears the credential; the still-valid JWT must be rejected
	creds.Clear("alice")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	auth.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "SESSION_REVOKED", errObj["code"])
}

func TestAuthenticateRevokedAfterCredentialChange(t *testing.T) {
	auth, sessions, creds := newAuth(t)
	creds.Set("alice", "hunter2")
	token, err := sessions.Issue("alice", engine.Fingerprint("hunter2"))
	require.NoError(t, err)

	creds.Set("alice", "new-password")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	auth.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- RateLimit ---

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	rl := mw.NewRateLimit(&mockCache{}, 5)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(mw.SetTenant(req.Context(), "alice"))
	w := httptest.NewRecorder()

	rl.Limit(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	c := &mockCache{}
	rl := mw.NewRateLimit(c, 2)

	handler := rl.Limit(okHandler())
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(mw.SetTenant(req.Context(), "alice"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(mw.SetTenant(req.Context(), "alice"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpenOnCacheError(t *testing.T) {
	rl := mw.NewRateLimit(&mockCache{err: assert.AnError}, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(mw.SetTenant(req.Context(), "alice"))
	w := httptest.NewRecorder()

	rl.Limit(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Recovery ---

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := mw.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
