package domain

// EntityKind 实体类型（记录分类）
// 每种实体对应一张表，最多携带若干动态属性列（JSONB）
type EntityKind string

const (
	EntityApplicant        EntityKind = "applicant"
	EntityLocation         EntityKind = "location"
	EntityEconomicActivity EntityKind = "economic-activity"
	EntityFinancialSummary EntityKind = "financial-summary"
	EntityCreditRequest    EntityKind = "credit-request"
	EntityCreditType       EntityKind = "credit-type"
)

// entityTables 实体 -> 表名
// 动态列寻址只允许注册过的 (entity, column) 组合，防止列名注入
var entityTables = map[EntityKind]string{
	EntityApplicant:        "applicants",
	EntityLocation:         "locations",
	EntityEconomicActivity: "economic_activities",
	EntityFinancialSummary: "financial_summaries",
	EntityCreditRequest:    "credit_requests",
	EntityCreditType:       "credit_types",
}

// entityPrimaryKeys 实体 -> 主键列名
var entityPrimaryKeys = map[EntityKind]string{
	EntityApplicant:        "applicant_id",
	EntityLocation:         "location_id",
	EntityEconomicActivity: "activity_id",
	EntityFinancialSummary: "summary_id",
	EntityCreditRequest:    "request_id",
	EntityCreditType:       "credit_type_id",
}

// entityDynamicColumns 实体 -> 允许的动态属性列
// locations 有两个独立寻址的动态列（地址扩展 vs 描述明细）
var entityDynamicColumns = map[EntityKind][]string{
	EntityApplicant:        {"extra", "referencias"},
	EntityLocation:         {"extra", "detalle"},
	EntityEconomicActivity: {"extra"},
	EntityFinancialSummary: {"extra"},
	EntityCreditRequest:    {"atributos"},
	EntityCreditType:       {"extra"},
}

// ParseEntityKind 解析实体类型，未注册的返回 false
func ParseEntityKind(s string) (EntityKind, bool) {
	kind := EntityKind(s)
	_, ok := entityTables[kind]
	return kind, ok
}

// TableName 实体对应的表名
func (k EntityKind) TableName() string {
	return entityTables[k]
}

// PrimaryKey 实体主键列名
func (k EntityKind) PrimaryKey() string {
	return entityPrimaryKeys[k]
}

// HasDynamicColumn 判断 (entity, column) 是否为注册过的动态列
func (k EntityKind) HasDynamicColumn(column string) bool {
	for _, c := range entityDynamicColumns[k] {
		if c == column {
			return true
		}
	}
	return false
}

// DynamicColumns 实体允许的动态属性列
func (k EntityKind) DynamicColumns() []string {
	return entityDynamicColumns[k]
}
