package repository

import (
	"context"

	"crediflow-data/internal/domain"
)

// TenantsRepository 租户Repository接口
// 使用强类型领域模型，不使用map[string]any
type TenantsRepository interface {
	// ========== 查询（单个）==========
	// GetTenant 根据tenant_id获取租户信息
	GetTenant(ctx context.Context, tenantID int64) (*domain.Tenant, error)

	// ========== 查询（列表）==========
	// ListTenants 查询租户列表（支持分页、过滤、搜索）
	ListTenants(ctx context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error)

	// ========== 创建 ==========
	// CreateTenant 创建新租户
	CreateTenant(ctx context.Context, tenant *domain.Tenant) (int64, error)

	// ========== 更新 ==========
	// SetTenantStatus 更新租户状态（active/suspended/deleted）
	SetTenantStatus(ctx context.Context, tenantID int64, status string) error
}

// TenantFilters 租户查询过滤器
type TenantFilters struct {
	Status string // 可选，按status过滤（active/suspended/deleted）
	Search string // 可选，按tenant_name搜索（模糊匹配）
}
