package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	SignupHandler http.HandlerFunc
	LoginHandler  http.HandlerFunc
	LogoutHandler http.HandlerFunc
	MeHandler     http.HandlerFunc

	ExecuteHandler    http.HandlerFunc
	SchemaTreeHandler http.HandlerFunc
	QueryHistory      http.HandlerFunc

	PracticeQuestion  http.HandlerFunc
	ValidateSolution  http.HandlerFunc
	SubmissionHistory http.HandlerFunc
	AskHandler        http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/auth/signup", orNotImplemented(deps.SignupHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/auth/logout", orNotImplemented(deps.LogoutHandler))
		r.Get("/api/v1/auth/me", orNotImplemented(deps.MeHandler))

		r.Post("/api/v1/execute-sql", orNotImplemented(deps.ExecuteHandler))
		r.Get("/api/v1/schema/tree", orNotImplemented(deps.SchemaTreeHandler))
		r.Get("/api/v1/query-history", orNotImplemented(deps.QueryHistory))

		r.Post("/api/v1/practice-question", orNotImplemented(deps.PracticeQuestion))
		r.Post("/api/v1/validate-solution", orNotImplemented(deps.ValidateSolution))
		r.Get("/api/v1/submission-history", orNotImplemented(deps.SubmissionHistory))
		r.Post("/api/v1/ask", orNotImplemented(deps.AskHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
