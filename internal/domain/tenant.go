package domain

import "encoding/json"

// Tenant 租户领域模型（对应 tenants 表）
// 租户是唯一的隔离边界：所有记录、目录、用户都挂在某个租户下
type Tenant struct {
	// 主键
	TenantID int64 `db:"tenant_id"`

	// 基本信息
	TenantName string `db:"tenant_name"` // VARCHAR(255), NOT NULL
	Nit        string `db:"nit"`         // 税号, UNIQUE, nullable
	Email      string `db:"email"`       // nullable
	Phone      string `db:"phone"`       // nullable

	// 状态
	Status string `db:"status"` // DEFAULT 'active' (active/suspended/deleted)

	// 扩展配置
	Metadata json.RawMessage `db:"metadata"` // JSONB, nullable
}
