package repository

import (
	"context"
	"encoding/json"

	"crediflow-data/internal/domain"
)

// DynamicColumnsRepository 动态属性列访问接口
// 对记录的单个 JSONB 列做整列读/写；合并逻辑在上层内存中完成后整列回写
//
// 并发说明：读-改-写是两次独立的存储调用，没有乐观锁；同一记录同一列的并发
// 写入存在丢失更新（last-writer-wins）。该弱点是文档化的设计取舍；如果目标
// 存储提供原子 JSON 合并原语，可在本接口后替换实现以消除竞态
type DynamicColumnsRepository interface {
	// GetColumn 读取记录的动态列，列为 NULL 时返回 '{}'
	// 记录不存在或属于其他租户时返回 ErrNotFound
	GetColumn(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64) (json.RawMessage, error)

	// SetColumn 整列回写记录的动态列
	// 记录不存在或属于其他租户时返回 ErrNotFound
	SetColumn(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64, value json.RawMessage) error
}
