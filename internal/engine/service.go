package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/querydojo/querydojo/internal/cache"
	"github.com/querydojo/querydojo/internal/history"
	"github.com/querydojo/querydojo/pkg/models"
)

// treeCacheTTL bounds staleness of cached namespace trees; DDL executed
// through the engine invalidates eagerly.
const treeCacheTTL = time.Minute

// Service is the core facade consumed by the web layer: batch execution
// with history recording, namespace provisioning, and tree introspection
// with caching.
type Service struct {
	backend Backend
	history history.Store
	cache   cache.Cache
}

// NewService creates a Service. cache may be nil, disabling tree caching.
func NewService(backend Backend, hist history.Store, c cache.Cache) *Service {
	return &Service{backend: backend, history: hist, cache: c}
}

// ProvisionTenant idempotently creates the tenant's namespace and seed data.
func (s *Service) ProvisionTenant(ctx context.Context, tenant string) error {
	return s.backend.Provision(ctx, tenant)
}

// ExecuteBatch runs the batch and records the outcome in the query
// history. The recorded snapshot is truncated by the history store.
func (s *Service) ExecuteBatch(ctx context.Context, tenant, sqlText string) ([]models.StatementResult, error) {
	results, err := s.backend.Execute(ctx, tenant, sqlText)
	if err != nil {
		return nil, err
	}

	if containsDDL(sqlText) {
		s.invalidateTree(ctx, tenant)
	}

	if err := s.history.RecordQuery(ctx, tenant, sqlText, results); err != nil {
		return nil, err
	}
	return results, nil
}

// NamespaceTree returns the tenant's namespace tree, served from cache
// when possible.
func (s *Service) NamespaceTree(ctx context.Context, tenant string) ([]models.SchemaNode, error) {
	if s.cache != nil {
		if raw, found, err := s.cache.Get(ctx, cache.NamespaceTreeKey(tenant)); err == nil && found {
			var tree []models.SchemaNode
			if err := json.Unmarshal(raw, &tree); err == nil {
				return tree, nil
			}
		}
	}

	tree, err := s.backend.Tree(ctx, tenant)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(tree); err == nil {
			if err := s.cache.Set(ctx, cache.NamespaceTreeKey(tenant), raw, treeCacheTTL); err != nil {
				slog.Warn("caching namespace tree", "tenant", tenant, "error", err)
			}
		}
	}
	return tree, nil
}

// EvictTenantConnection drops the tenant's cached connection and tree.
// Called by the auth layer on logout.
func (s *Service) EvictTenantConnection(ctx context.Context, tenant string) {
	s.backend.Evict(tenant)
	s.invalidateTree(ctx, tenant)
}

// EvictAll clears every cached connection (process-wide credential reset).
func (s *Service) EvictAll() {
	s.backend.EvictAll()
}

// Ping checks backend connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Service) invalidateTree(ctx context.Context, tenant string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.NamespaceTreeKey(tenant)); err != nil {
		slog.Warn("invalidating namespace tree cache", "tenant", tenant, "error", err)
	}
}

// containsDDL reports whether any statement in the batch could change
// the namespace shape.
func containsDDL(batch string) bool {
	for _, stmt := range SplitStatements(batch) {
		switch strings.ToUpper(firstKeyword(stmt)) {
		case "CREATE", "DROP", "ALTER", "TRUNCATE":
			return true
		}
	}
	return false
}
