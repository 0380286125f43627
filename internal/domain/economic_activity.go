package domain

import (
	"database/sql"
	"encoding/json"
)

// EconomicActivity 经济活动领域模型（对应 economic_activities 表）
type EconomicActivity struct {
	// 主键和租户
	ActivityID int64 `db:"activity_id"`
	TenantID   int64 `db:"tenant_id"`

	// 固定列
	ApplicantID  sql.NullInt64   `db:"applicant_id"`
	ActivityType string          `db:"activity_type"` // 雇员/独立/退休 等
	CompanyName  sql.NullString  `db:"company_name"`
	Position     sql.NullString  `db:"position"`
	MonthlyIncome sql.NullFloat64 `db:"monthly_income"`

	// 动态属性列（JSONB）
	Extra json.RawMessage `db:"extra"`
}
