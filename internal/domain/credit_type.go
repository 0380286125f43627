package domain

import (
	"database/sql"
	"encoding/json"
)

// CreditType 信贷产品类型领域模型（对应 credit_types 表）
type CreditType struct {
	// 主键和租户
	CreditTypeID int64 `db:"credit_type_id"`
	TenantID     int64 `db:"tenant_id"`

	// 固定列
	Name        string          `db:"name"` // NOT NULL
	Description sql.NullString  `db:"description"`
	MinAmount   sql.NullFloat64 `db:"min_amount"`
	MaxAmount   sql.NullFloat64 `db:"max_amount"`
	Active      bool            `db:"active"`

	// 动态属性列（JSONB）
	Extra json.RawMessage `db:"extra"`
}
