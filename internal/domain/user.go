package domain

import (
	"database/sql"
	"time"
)

// 角色代码（users.role）
const (
	RoleCodeAdmin      = "admin"      // 平台/公司管理员：全租户可见
	RoleCodeCompany    = "empresa"    // 公司级账号：全租户可见
	RoleCodeBank       = "banco"      // 机构账号：仅限所属机构（及城市）
	RoleCodeSupervisor = "supervisor" // 主管：本人 + 直接下属
	RoleCodeAnalyst    = "asesor"     // 顾问/分析员：仅限本人
)

// User 用户领域模型（对应 users 表）
// 角色上下文（RoleContext）不落库，每次请求从本行重新推导
type User struct {
	// 主键和租户
	UserID   int64 `db:"user_id"`
	TenantID int64 `db:"tenant_id"`

	// 账号信息
	Email    string `db:"email"` // NOT NULL, 租户内唯一
	FullName string `db:"full_name"`
	Role     string `db:"role"`   // NOT NULL
	Status   string `db:"status"` // default 'active'

	// 角色作用域属性
	Banco        sql.NullString `db:"banco"`         // 机构账号所属机构名称
	Ciudad       sql.NullString `db:"ciudad"`        // 机构账号限定城市（可选）
	SupervisorID sql.NullInt64  `db:"supervisor_id"` // 上级主管

	LastLoginAt sql.NullTime `db:"last_login_at"`
	CreatedAt   time.Time    `db:"created_at"`
}
