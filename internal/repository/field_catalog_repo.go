package repository

import (
	"context"

	"crediflow-data/internal/domain"
)

// FieldCatalogRepository 动态属性定义目录Repository接口
// 使用强类型领域模型，不使用map[string]any
// 作用域统一为 (tenant_id, entity_kind, column_name)
type FieldCatalogRepository interface {
	// ========== 查询 ==========
	// GetDefinitions 获取目录下全部定义（无序，展示排序由上层解析）
	GetDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string) ([]*domain.FieldDefinition, error)

	// ========== 替换 ==========
	// ReplaceDefinitions 按 key 做 delete-then-insert 式替换
	// 只影响 items 中出现的 key，其余 key 的定义保持不变；调用方必须为每个
	// 触及的 key 重发完整定义（不支持定义的字段级补丁，避免合并歧义）
	// 注意：delete 与 insert 是两次调用，无事务；并发读取可能短暂观察到缺失的定义
	ReplaceDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, items []*domain.FieldDefinition) error

	// ========== 删除 ==========
	// DeleteDefinitions 删除单个 key 的定义（key 非空）或整个目录（key 为空）
	// 返回删除的定义数
	DeleteDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, key string) (int, error)
}
