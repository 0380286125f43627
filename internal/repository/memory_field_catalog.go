package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"crediflow-data/internal/domain"
)

// MemoryFieldCatalogRepository supports unit tests and the no-DB fallback.
type MemoryFieldCatalogRepository struct {
	mu sync.RWMutex
	// scope key "tenant/entity/column" -> field_key -> definition
	defs map[string]map[string]*domain.FieldDefinition
}

func NewMemoryFieldCatalogRepository() *MemoryFieldCatalogRepository {
	return &MemoryFieldCatalogRepository{
		defs: map[string]map[string]*domain.FieldDefinition{},
	}
}

var _ FieldCatalogRepository = (*MemoryFieldCatalogRepository)(nil)

func catalogScopeKey(tenantID int64, entity domain.EntityKind, column string) string {
	return fmt.Sprintf("%d/%s/%s", tenantID, entity, column)
}

func (r *MemoryFieldCatalogRepository) GetDefinitions(_ context.Context, tenantID int64, entity domain.EntityKind, column string) ([]*domain.FieldDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scope := r.defs[catalogScopeKey(tenantID, entity, column)]
	out := make([]*domain.FieldDefinition, 0, len(scope))
	for _, def := range scope {
		copied := *def
		out = append(out, &copied)
	}
	return out, nil
}

func (r *MemoryFieldCatalogRepository) ReplaceDefinitions(_ context.Context, tenantID int64, entity domain.EntityKind, column string, items []*domain.FieldDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := catalogScopeKey(tenantID, entity, column)
	scope, ok := r.defs[key]
	if !ok {
		scope = map[string]*domain.FieldDefinition{}
		r.defs[key] = scope
	}
	for _, item := range items {
		if strings.TrimSpace(item.Key) == "" {
			return fmt.Errorf("field definition key is required")
		}
		copied := *item
		copied.TenantID = tenantID
		copied.EntityKind = entity
		copied.ColumnName = column
		scope[item.Key] = &copied
	}
	return nil
}

func (r *MemoryFieldCatalogRepository) DeleteDefinitions(_ context.Context, tenantID int64, entity domain.EntityKind, column string, key string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopeKey := catalogScopeKey(tenantID, entity, column)
	scope := r.defs[scopeKey]
	if key != "" {
		if _, ok := scope[key]; !ok {
			return 0, nil
		}
		delete(scope, key)
		return 1, nil
	}
	n := len(scope)
	delete(r.defs, scopeKey)
	return n, nil
}
