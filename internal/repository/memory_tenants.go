package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"crediflow-data/internal/domain"
)

// MemoryTenantsRepository supports unit tests and the no-DB fallback.
// NOTE: This is "platform-level" data (not per-tenant).
type MemoryTenantsRepository struct {
	mu      sync.RWMutex
	nextID  int64
	tenants map[int64]*domain.Tenant // tenantID -> Tenant
}

func NewMemoryTenantsRepository() *MemoryTenantsRepository {
	return &MemoryTenantsRepository{
		nextID:  1,
		tenants: map[int64]*domain.Tenant{},
	}
}

var _ TenantsRepository = (*MemoryTenantsRepository)(nil)

// PutTenant 写入租户（测试与内存回退模式的种子数据）
func (r *MemoryTenantsRepository) PutTenant(tenant *domain.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *tenant
	if copied.Status == "" {
		copied.Status = "active"
	}
	r.tenants[tenant.TenantID] = &copied
	if tenant.TenantID >= r.nextID {
		r.nextID = tenant.TenantID + 1
	}
}

func (r *MemoryTenantsRepository) GetTenant(_ context.Context, tenantID int64) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("failed to get tenant: %w", ErrNotFound)
	}
	copied := *tenant
	return &copied, nil
}

func (r *MemoryTenantsRepository) ListTenants(_ context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.Tenant{}
	for _, t := range r.tenants {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.TenantName), strings.ToLower(filter.Search)) {
			continue
		}
		copied := *t
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TenantName < all[j].TenantName
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryTenantsRepository) CreateTenant(_ context.Context, tenant *domain.Tenant) (int64, error) {
	if tenant == nil {
		return 0, fmt.Errorf("tenant is required")
	}
	if tenant.TenantName == "" {
		return 0, fmt.Errorf("tenant_name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *tenant
	copied.TenantID = r.nextID
	r.nextID++
	if copied.Status == "" {
		copied.Status = "active"
	}
	if len(copied.Metadata) == 0 {
		copied.Metadata = json.RawMessage("{}")
	}
	r.tenants[copied.TenantID] = &copied
	return copied.TenantID, nil
}

func (r *MemoryTenantsRepository) SetTenantStatus(_ context.Context, tenantID int64, status string) error {
	if status == "" {
		return fmt.Errorf("status is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[tenantID]
	if !ok {
		return fmt.Errorf("failed to set tenant status: %w", ErrNotFound)
	}
	tenant.Status = status
	return nil
}
