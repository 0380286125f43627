package domain

import (
	"database/sql"
	"encoding/json"
)

// Location 地址领域模型（对应 locations 表）
// 携带两个独立寻址的动态列：extra（租户自定义字段）与 detalle（地址明细）
type Location struct {
	// 主键和租户
	LocationID int64 `db:"location_id"`
	TenantID   int64 `db:"tenant_id"`

	// 固定列
	ApplicantID sql.NullInt64  `db:"applicant_id"`
	Address     string         `db:"address"`
	City        string         `db:"city"`
	Department  sql.NullString `db:"department"` // 省/州
	Kind        sql.NullString `db:"kind"`       // 住宅/办公/经营场所

	// 动态属性列（JSONB）
	Extra   json.RawMessage `db:"extra"`
	Detalle json.RawMessage `db:"detalle"`
}
