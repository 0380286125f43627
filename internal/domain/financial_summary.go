package domain

import (
	"database/sql"
	"encoding/json"
)

// FinancialSummary 财务摘要领域模型（对应 financial_summaries 表）
type FinancialSummary struct {
	// 主键和租户
	SummaryID int64 `db:"summary_id"`
	TenantID  int64 `db:"tenant_id"`

	// 固定列
	ApplicantID   sql.NullInt64   `db:"applicant_id"`
	TotalIncome   sql.NullFloat64 `db:"total_income"`
	TotalExpenses sql.NullFloat64 `db:"total_expenses"`
	TotalAssets   sql.NullFloat64 `db:"total_assets"`
	TotalDebts    sql.NullFloat64 `db:"total_debts"`

	// 动态属性列（JSONB）
	Extra json.RawMessage `db:"extra"`
}
