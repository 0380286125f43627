package repository

import (
	"context"

	"crediflow-data/internal/domain"
)

// RequestScope 角色作用域约束（在 tenant_id 过滤之外叠加）
// 由上层按角色构建；零值（All=false, None=false, 无其他字段）不应出现——
// 任何缺失的上下文都必须收敛为 None，绝不放宽
type RequestScope struct {
	// All 全租户可见（admin/公司级）
	All bool
	// None 不可满足约束：必定空结果（机构账号缺少所属机构、未识别角色）
	None bool

	// Banco 机构名称等值约束（机构账号）
	Banco string
	// Ciudad 城市等值约束（机构账号，可选叠加）
	Ciudad string

	// ActorIDs 创建人或负责人约束：created_by/assigned_to ∈ ActorIDs
	//（主管 = 本人 + 直接下属；顾问 = 仅本人）
	ActorIDs []int64
}

// CreditRequestFilters 信贷申请查询过滤器
type CreditRequestFilters struct {
	Status string // 可选，按status过滤
}

// CreditRequestsRepository 信贷申请Repository接口
type CreditRequestsRepository interface {
	// ========== 查询（单个）==========
	// GetCreditRequest 根据request_id获取申请（含 atributos/historial 整列）
	GetCreditRequest(ctx context.Context, tenantID int64, requestID int64) (*domain.CreditRequest, error)

	// ========== 查询（列表）==========
	// ListCreditRequests 查询申请列表（分页 + 过滤 + 作用域约束）
	ListCreditRequests(ctx context.Context, tenantID int64, scope RequestScope, filter CreditRequestFilters, page, size int) ([]*domain.CreditRequest, int, error)

	// ========== 创建 ==========
	CreateCreditRequest(ctx context.Context, tenantID int64, req *domain.CreditRequest) (int64, error)

	// ========== 更新 ==========
	// UpdateCreditRequest 按 upd 中出现的列覆盖更新
	// Atributos/Historial 为整列回写（读-改-写在上层完成，见 DynamicColumnsRepository 并发说明）
	UpdateCreditRequest(ctx context.Context, tenantID int64, requestID int64, upd domain.CreditRequestUpdate) error
}
