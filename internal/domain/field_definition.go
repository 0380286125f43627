package domain

import "encoding/json"

// FieldDefinition 动态属性定义（对应 field_definitions 表）
// 作用域：(tenant_id, entity_kind, column_name, key)，key 在作用域内唯一
// 定义不做版本化：最新定义即校验新写入时的权威定义，已存储的旧值不回溯校验
type FieldDefinition struct {
	TenantID   int64      `db:"tenant_id"`
	EntityKind EntityKind `db:"entity_kind"`
	ColumnName string     `db:"column_name"`
	Key        string     `db:"key"` // NOT NULL，作用域内唯一

	// 类型与约束
	Type     string `db:"type"` // string/number/boolean/enum/object-array；未知类型按不透明字符串接受（向前兼容）
	Required bool   `db:"required"`

	// 取值与展示
	AllowedValues *AllowedValues  `db:"allowed_values"` // nullable, JSONB
	Description   string          `db:"description"`    // nullable
	DefaultValue  json.RawMessage `db:"default_value"`  // nullable, JSONB
	ConditionalOn *Condition      `db:"conditional_on"` // nullable, JSONB：依赖的 key/value
	OrderIndex    *int            `db:"order_index"`    // nullable：展示排序，缺省为最低优先级
}

// AllowedValues 枚举取值集合
// 兼容两种存储编码：
//   - 遗留编码：裸字符串数组 ["a","b"]
//   - 规范编码：{"values":[...],"order_index":N}
// 读取时统一规范化为本结构
type AllowedValues struct {
	Values     []string `json:"values"`
	OrderIndex *int     `json:"order_index,omitempty"`
}

// Condition 条件可见性：本字段依赖的 key/value
type Condition struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// orderSentinel 无排序信息时的排序键（排在最后，组内按 key 稳定排序）
const orderSentinel = 1 << 30

// ResolveOrder 展示排序键：优先自身 order_index，其次 allowed_values 内嵌的
// order_index（遗留单数组编码的排序信息），都没有则视为最低优先级
func (d *FieldDefinition) ResolveOrder() int {
	if d.OrderIndex != nil {
		return *d.OrderIndex
	}
	if d.AllowedValues != nil && d.AllowedValues.OrderIndex != nil {
		return *d.AllowedValues.OrderIndex
	}
	return orderSentinel
}

// NormalizeAllowedValues 反序列化 allowed_values JSONB，兼容遗留裸数组编码
func NormalizeAllowedValues(raw json.RawMessage) (*AllowedValues, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var av AllowedValues
	if err := json.Unmarshal(raw, &av); err == nil {
		return &av, nil
	}
	// 遗留编码：["a","b"]
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return &AllowedValues{Values: values}, nil
}
