package middleware

import (
	"net/http"
	"strings"

	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/internal/engine"
)

// Auth validates session tokens and binds the tenant to the request
// context. A token is only accepted while the credential it was issued
// against is still the tenant's current one, so logout and credential
// changes invalidate outstanding tokens immediately.
type Auth struct {
	sessions *Sessions
	creds    *engine.CredentialProvider
}

// NewAuth creates an Auth middleware.
func NewAuth(sessions *Sessions, creds *engine.CredentialProvider) *Auth {
	return &Auth{sessions: sessions, creds: creds}
}

// Authenticate validates the Bearer token and sets the tenant in the
// request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		tenant, fingerprint, err := a.sessions.Verify(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired session token", nil)
			return
		}

		credential, ok := a.creds.Get(tenant)
		if !ok || engine.Fingerprint(credential) != fingerprint {
			response.Error(w, http.StatusUnauthorized,
				"SESSION_REVOKED", "Session is no longer valid, log in again", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetTenant(r.Context(), tenant)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
