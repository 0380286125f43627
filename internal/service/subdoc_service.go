package service

import (
	"context"
	"encoding/json"
	"fmt"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"

	"go.uber.org/zap"
)

// subdocItemsKey 子文档容器里存放数组的 key
const subdocItemsKey = "items"

// SubdocService 子文档集合管理器
// 针对取值为 {"items":[{"item_id":N,...}]} 的动态属性列（如申请人的推荐人列表）
// item_id 单调递增（1+当前最大值），删除后不复用；父容器在首次操作时惰性创建
type SubdocService struct {
	records repository.DynamicColumnsRepository
	logger  *zap.Logger
}

// NewSubdocService 创建子文档集合管理器
func NewSubdocService(records repository.DynamicColumnsRepository, logger *zap.Logger) *SubdocService {
	return &SubdocService{
		records: records,
		logger:  logger,
	}
}

// SubdocScope 子文档操作的目标列
type SubdocScope struct {
	TenantID int64
	Entity   domain.EntityKind
	Column   string
	RecordID int64
}

// Append 追加子文档项
// 调用方提供的 item_id 会被剥离，以分配的 id 为准
func (s *SubdocService) Append(ctx context.Context, scope SubdocScope, fields map[string]any) (map[string]any, error) {
	if err := validateFieldScope(scope.TenantID, scope.Entity, scope.Column, ""); err != nil {
		return nil, err
	}

	items, container, err := s.loadItems(ctx, scope)
	if err != nil {
		return nil, err
	}

	item := map[string]any{}
	for k, v := range fields {
		item[k] = v
	}
	delete(item, "item_id")
	item["item_id"] = nextItemID(items)

	items = append(items, item)
	if err := s.persistItems(ctx, scope, container, items); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateByID 按 item_id 定位并浅覆盖该项的字段
// 兄弟项不受影响；item_id 本身不可变
func (s *SubdocService) UpdateByID(ctx context.Context, scope SubdocScope, itemID int64, updates map[string]any) (map[string]any, error) {
	if err := validateFieldScope(scope.TenantID, scope.Entity, scope.Column, ""); err != nil {
		return nil, err
	}

	items, container, err := s.loadItems(ctx, scope)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		if itemIDOf(item) != itemID {
			continue
		}
		for k, v := range updates {
			if k == "item_id" {
				continue
			}
			item[k] = v
		}
		items[i] = item
		if err := s.persistItems(ctx, scope, container, items); err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, fmt.Errorf("sub-document item %d: %w", itemID, repository.ErrNotFound)
}

// RemoveByID 按 item_id 删除该项并持久化剩余项
func (s *SubdocService) RemoveByID(ctx context.Context, scope SubdocScope, itemID int64) (map[string]any, error) {
	if err := validateFieldScope(scope.TenantID, scope.Entity, scope.Column, ""); err != nil {
		return nil, err
	}

	items, container, err := s.loadItems(ctx, scope)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		if itemIDOf(item) != itemID {
			continue
		}
		remaining := append(items[:i:i], items[i+1:]...)
		if err := s.persistItems(ctx, scope, container, remaining); err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, fmt.Errorf("sub-document item %d: %w", itemID, repository.ErrNotFound)
}

// GetByID 按 item_id 只读查询，不产生任何写入
// 项不存在返回 (nil, nil)（absent，不是错误）
func (s *SubdocService) GetByID(ctx context.Context, scope SubdocScope, itemID int64) (map[string]any, error) {
	if err := validateFieldScope(scope.TenantID, scope.Entity, scope.Column, ""); err != nil {
		return nil, err
	}

	items, _, err := s.loadItems(ctx, scope)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if itemIDOf(item) == itemID {
			return item, nil
		}
	}
	return nil, nil
}

// loadItems 读取容器并取出 items 数组；记录尚无容器时视为空数组（惰性创建）
func (s *SubdocService) loadItems(ctx context.Context, scope SubdocScope) ([]map[string]any, map[string]any, error) {
	raw, err := s.records.GetColumn(ctx, scope.TenantID, scope.Entity, scope.Column, scope.RecordID)
	if err != nil {
		return nil, nil, err
	}

	container := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &container); err != nil {
			return nil, nil, fmt.Errorf("stored %s.%s is not an object: %w", scope.Entity, scope.Column, err)
		}
	}

	items := []map[string]any{}
	if rawItems, ok := container[subdocItemsKey].([]any); ok {
		for _, entry := range rawItems {
			if m, ok := entry.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}
	return items, container, nil
}

func (s *SubdocService) persistItems(ctx context.Context, scope SubdocScope, container map[string]any, items []map[string]any) error {
	container[subdocItemsKey] = items
	raw, err := json.Marshal(container)
	if err != nil {
		return fmt.Errorf("failed to marshal %s.%s: %w", scope.Entity, scope.Column, err)
	}
	return s.records.SetColumn(ctx, scope.TenantID, scope.Entity, scope.Column, scope.RecordID, raw)
}

// nextItemID 计算下一个 item_id：1 + 当前最大值（空数组从 1 开始）
// 只增不减：删除某项后其 id 不会被复用
func nextItemID(items []map[string]any) int64 {
	var max int64
	for _, item := range items {
		if id := itemIDOf(item); id > max {
			max = id
		}
	}
	return max + 1
}

// itemIDOf 提取项的 item_id（JSON 反序列化后数字是 float64）
func itemIDOf(item map[string]any) int64 {
	switch v := item["item_id"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return 0
}
