package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// 信贷申请状态
const (
	CreditStatusPending  = "pendiente"
	CreditStatusStudy    = "en_estudio"
	CreditStatusApproved = "aprobada"
	CreditStatusRejected = "rechazada"
	CreditStatusDisbursed = "desembolsada"
)

// CreditRequest 信贷申请领域模型（对应 credit_requests 表）
type CreditRequest struct {
	// 主键和租户
	RequestID int64 `db:"request_id"`
	TenantID  int64 `db:"tenant_id"`

	// 固定列
	ApplicantID  sql.NullInt64   `db:"applicant_id"`
	CreditTypeID sql.NullInt64   `db:"credit_type_id"`
	Status       string          `db:"status"` // NOT NULL, default 'pendiente'
	Monto        sql.NullFloat64 `db:"monto"`  // 申请金额
	Banco        sql.NullString  `db:"banco"`  // 承接机构名称
	Ciudad       sql.NullString  `db:"ciudad"`
	CreatedBy    int64           `db:"created_by"`  // 创建人（users.user_id）
	AssignedTo   sql.NullInt64   `db:"assigned_to"` // 当前负责人
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`

	// 动态属性列（JSONB）：按信贷子类型组织的嵌套块，递归合并更新
	Atributos json.RawMessage `db:"atributos"`

	// 审计列（JSONB 数组）：只追加
	Historial json.RawMessage `db:"historial"`
}

// CreditRequestUpdate 信贷申请更新（固定列按出现即覆盖语义）
// nil 指针表示不更新该列；Atributos/Historial 为整列回写
type CreditRequestUpdate struct {
	Status     *string
	Monto      *float64
	Banco      *string
	Ciudad     *string
	AssignedTo *int64
	Atributos  json.RawMessage
	Historial  json.RawMessage
}
