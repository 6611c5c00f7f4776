package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/internal/engine"
	"github.com/querydojo/querydojo/internal/ident"
	"github.com/querydojo/querydojo/internal/store"
	"github.com/querydojo/querydojo/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// RoleManager creates a tenant's database login principal. The duckdb
// backend has no principals and plugs in a no-op.
type RoleManager interface {
	EnsureRole(ctx context.Context, tenant, credential string) error
}

// NopRoleManager satisfies RoleManager for backends without roles.
type NopRoleManager struct{}

func (NopRoleManager) EnsureRole(context.Context, string, string) error { return nil }

// Provisioner sets up a tenant's namespace and seed data.
type Provisioner interface {
	ProvisionTenant(ctx context.Context, tenant string) error
}

// Evictor drops a tenant's cached connection on logout.
type Evictor interface {
	EvictTenantConnection(ctx context.Context, tenant string)
}

// AuthDeps holds the collaborators of the auth handlers.
type AuthDeps struct {
	Catalog  store.Store
	Roles    RoleManager
	Engine   Provisioner
	Evictor  Evictor
	Creds    *engine.CredentialProvider
	Sessions *mw.Sessions
}

type sessionResponse struct {
	Token  string `json:"token"`
	Tenant string `json:"tenant"`
}

// NewSignupHandler returns an http.HandlerFunc for POST /api/v1/auth/signup.
// Signup registers the tenant in the catalog, creates its database role
// and namespace, and logs it in.
func NewSignupHandler(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Email == "" || req.Password == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required", nil)
			return
		}
		if err := ident.Validate(req.Username); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_USERNAME",
				"Username must be 3-63 characters, lowercase letters, digits and underscores, starting with a letter", nil)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process credentials", nil)
			return
		}

		tenant := &models.Tenant{
			Name:         req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
		}
		if err := deps.Catalog.CreateTenant(r.Context(), tenant); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				response.Error(w, http.StatusConflict, "TENANT_EXISTS", "Username or email already registered", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account", nil)
			return
		}

		if err := deps.Roles.EnsureRole(r.Context(), req.Username, req.Password); err != nil {
			response.Error(w, http.StatusInternalServerError, "PROVISIONING_FAILED", "Failed to create database role", nil)
			return
		}
		if err := deps.Engine.ProvisionTenant(r.Context(), req.Username); err != nil {
			response.Error(w, http.StatusInternalServerError, "PROVISIONING_FAILED", "Failed to provision namespace", nil)
			return
		}

		deps.Creds.Set(req.Username, req.Password)
		token, err := deps.Sessions.Issue(req.Username, engine.Fingerprint(req.Password))
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue session", nil)
			return
		}
		response.Created(w, sessionResponse{Token: token, Tenant: req.Username})
	}
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
// Provisioning is re-run on every login so a tenant whose namespace was
// never set up (or was migrated) is repaired transparently.
func NewLoginHandler(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		tenant, err := deps.Catalog.GetTenantByName(r.Context(), req.Username)
		if err != nil {
			// Same response for unknown user and wrong password.
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(tenant.PasswordHash), []byte(req.Password)) != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
			return
		}

		if err := deps.Roles.EnsureRole(r.Context(), tenant.Name, req.Password); err != nil {
			response.Error(w, http.StatusInternalServerError, "PROVISIONING_FAILED", "Failed to prepare database role", nil)
			return
		}
		if err := deps.Engine.ProvisionTenant(r.Context(), tenant.Name); err != nil {
			response.Error(w, http.StatusInternalServerError, "PROVISIONING_FAILED", "Failed to provision namespace", nil)
			return
		}

		deps.Creds.Set(tenant.Name, req.Password)
		token, err := deps.Sessions.Issue(tenant.Name, engine.Fingerprint(req.Password))
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue session", nil)
			return
		}
		response.JSON(w, sessionResponse{Token: token, Tenant: tenant.Name})
	}
}

// NewMeHandler returns an http.HandlerFunc for GET /api/v1/auth/me. It
// reports the authenticated tenant, confirming the session is still live.
func NewMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		response.JSON(w, map[string]string{"tenant": tenant})
	}
}

// NewLogoutHandler returns an http.HandlerFunc for POST /api/v1/auth/logout.
// Logout clears the in-memory credential and evicts the tenant's cached
// connection, which also invalidates all outstanding session tokens.
func NewLogoutHandler(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		deps.Creds.Clear(tenant)
		deps.Evictor.EvictTenantConnection(r.Context(), tenant)
		response.JSON(w, map[string]string{"message": "Logged out"})
	}
}
