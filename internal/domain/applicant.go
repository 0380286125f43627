package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Applicant 申请人领域模型（对应 applicants 表）
type Applicant struct {
	// 主键和租户
	ApplicantID int64 `db:"applicant_id"`
	TenantID    int64 `db:"tenant_id"`

	// 固定列
	DocumentNumber string         `db:"document_number"` // 证件号, NOT NULL
	DocumentType   string         `db:"document_type"`   // CC/CE/NIT 等
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	Email          sql.NullString `db:"email"`
	Phone          sql.NullString `db:"phone"`
	BirthDate      sql.NullTime   `db:"birth_date"`
	CreatedAt      time.Time      `db:"created_at"`

	// 动态属性列（JSONB）：租户自定义字段，由 field_definitions 编目
	Extra json.RawMessage `db:"extra"`

	// 子文档列（JSONB）：个人推荐人列表 {"items":[{"item_id":N,...}]}
	Referencias json.RawMessage `db:"referencias"`
}
