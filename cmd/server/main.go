// Package main is the entrypoint for the QueryDojo API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/querydojo/querydojo/internal/api"
	"github.com/querydojo/querydojo/internal/api/handler"
	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/cache"
	"github.com/querydojo/querydojo/internal/config"
	"github.com/querydojo/querydojo/internal/engine"
	"github.com/querydojo/querydojo/internal/history"
	"github.com/querydojo/querydojo/internal/llm"
	"github.com/querydojo/querydojo/internal/llm/mock"
	"github.com/querydojo/querydojo/internal/practice"
	"github.com/querydojo/querydojo/internal/retry"
	"github.com/querydojo/querydojo/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"backend", cfg.Engine.Backend, "llm_provider", cfg.LLM.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create LLM provider
	provider, err := newLLMProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}
	slog.Info("LLM provider initialized", "provider", provider.Name())

	// 6. Execution backend and tenant credential state
	exec := retry.New()
	creds := engine.NewCredentialProvider()

	backend, roles, cleanup, err := newBackend(ctx, cfg, pool, creds, exec)
	if err != nil {
		return fmt.Errorf("create execution backend: %w", err)
	}
	defer cleanup()
	slog.Info("execution backend ready", "backend", cfg.Engine.Backend)

	// 7. Stores and services
	catalog := store.NewPostgresStore(pool, exec)
	hist := history.NewPostgresStore(pool, exec)

	svc := engine.NewService(backend, hist, redisCache)
	tutor := practice.NewService(provider, hist, svc, cfg.LLM.InferenceTimeout)

	// 8. Build router with dependencies
	sessions := mw.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	authDeps := handler.AuthDeps{
		Catalog:  catalog,
		Roles:    roles,
		Engine:   svc,
		Evictor:  svc,
		Creds:    creds,
		Sessions: sessions,
	}

	deps := api.Dependencies{
		Auth:      mw.NewAuth(sessions, creds),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler: handler.NewHealthHandler(svc, redisCache),
		SignupHandler: handler.NewSignupHandler(authDeps),
		LoginHandler:  handler.NewLoginHandler(authDeps),
		LogoutHandler: handler.NewLogoutHandler(authDeps),
		MeHandler:     handler.NewMeHandler(),

		ExecuteHandler:    handler.NewExecuteHandler(svc),
		SchemaTreeHandler: handler.NewSchemaTreeHandler(svc),
		QueryHistory:      handler.NewQueryHistoryHandler(hist),

		PracticeQuestion:  handler.NewPracticeQuestionHandler(tutor),
		ValidateSolution:  handler.NewValidateSolutionHandler(tutor),
		SubmissionHistory: handler.NewSubmissionHistoryHandler(tutor),
		AskHandler:        handler.NewAskHandler(tutor),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	svc.EvictAll()
	slog.Info("server stopped gracefully")
	return nil
}

// newLLMProvider builds the configured provider. The "mock" provider is
// assembled here rather than in the factory so the llm package does not
// depend on its own test double.
func newLLMProvider(cfg config.LLMConfig) (llm.Provider, error) {
	if cfg.Provider == "mock" {
		return mock.NewProvider(), nil
	}
	return llm.NewProvider(cfg)
}

// newBackend builds the execution backend selected by config. The
// postgres backend opens per-tenant connections with role credentials;
// the duckdb backend runs everything on a single local database and has
// no roles to manage.
func newBackend(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, creds *engine.CredentialProvider, exec *retry.Executor) (engine.Backend, handler.RoleManager, func(), error) {
	switch cfg.Engine.Backend {
	case "postgres":
		conns := engine.NewConnectionManager(cfg.Database.URL, creds)
		prov := engine.NewProvisioner(pool, exec)
		backend := engine.NewPostgresBackend(pool, conns, prov, exec, cfg.Engine.MaxTablesPerTenant)
		return backend, prov, conns.EvictAll, nil
	case "duckdb":
		backend, err := engine.NewDuckDBBackend(ctx, cfg.Engine.DuckDBPath, cfg.Engine.MaxTablesPerTenant)
		if err != nil {
			return nil, nil, nil, err
		}
		return backend, handler.NopRoleManager{}, backend.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.Engine.Backend)
	}
}
