package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"
	"crediflow-data/internal/store"

	"go.uber.org/zap"
)

// catalogCacheTTL 目录缓存TTL
// 定义变更走显式失效，TTL只兜底多实例间的缓存漂移
const catalogCacheTTL = 60 * time.Second

// CatalogService 动态属性定义目录服务
type CatalogService struct {
	catalogRepo repository.FieldCatalogRepository
	cache       store.KV // 可为 nil（禁用缓存）
	logger      *zap.Logger
}

// NewCatalogService 创建目录服务
func NewCatalogService(catalogRepo repository.FieldCatalogRepository, cache store.KV, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		cache:       cache,
		logger:      logger,
	}
}

// DefinitionItem 字段定义（前端格式）
type DefinitionItem struct {
	Key           string                `json:"key"`
	Type          string                `json:"type"`
	Required      bool                  `json:"required,omitempty"`
	AllowedValues *domain.AllowedValues `json:"allowed_values,omitempty"`
	Description   string                `json:"description,omitempty"`
	DefaultValue  json.RawMessage       `json:"default_value,omitempty"`
	ConditionalOn *domain.Condition     `json:"conditional_on,omitempty"`
	OrderIndex    *int                  `json:"order_index,omitempty"`
}

// UpsertDefinitionsRequest 目录替换请求
type UpsertDefinitionsRequest struct {
	TenantID int64
	Entity   domain.EntityKind
	Column   string
	Items    []DefinitionItem
}

// UpsertDefinitions 按 key 替换定义（delete-then-insert）
// 幂等：重复提交同一组定义，每个 key 仍只有一份定义
// 未知 type 按不透明字符串接受（向前兼容），不做拒绝
func (s *CatalogService) UpsertDefinitions(ctx context.Context, req UpsertDefinitionsRequest) error {
	if err := validateCatalogScope(req.TenantID, req.Entity, req.Column); err != nil {
		return err
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("definitions are required: %w", ErrValidation)
	}

	defs := make([]*domain.FieldDefinition, 0, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.Key) == "" {
			return fmt.Errorf("definition key is required: %w", ErrValidation)
		}
		defs = append(defs, &domain.FieldDefinition{
			TenantID:      req.TenantID,
			EntityKind:    req.Entity,
			ColumnName:    req.Column,
			Key:           strings.TrimSpace(item.Key),
			Type:          item.Type,
			Required:      item.Required,
			AllowedValues: item.AllowedValues,
			Description:   item.Description,
			DefaultValue:  item.DefaultValue,
			ConditionalOn: item.ConditionalOn,
			OrderIndex:    item.OrderIndex,
		})
	}

	if err := s.catalogRepo.ReplaceDefinitions(ctx, req.TenantID, req.Entity, req.Column, defs); err != nil {
		return err
	}

	s.invalidate(ctx, req.TenantID, req.Entity, req.Column)
	return nil
}

// GetDefinitions 获取目录定义（按展示顺序排序）
// 排序：自身 order_index > allowed_values 内嵌 order_index > 最低优先级（组内按 key 稳定）
func (s *CatalogService) GetDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string) ([]DefinitionItem, error) {
	defs, err := s.definitions(ctx, tenantID, entity, column)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(defs, func(i, j int) bool {
		oi, oj := defs[i].ResolveOrder(), defs[j].ResolveOrder()
		if oi != oj {
			return oi < oj
		}
		return defs[i].Key < defs[j].Key
	})

	items := make([]DefinitionItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, DefinitionItem{
			Key:           def.Key,
			Type:          def.Type,
			Required:      def.Required,
			AllowedValues: def.AllowedValues,
			Description:   def.Description,
			DefaultValue:  def.DefaultValue,
			ConditionalOn: def.ConditionalOn,
			OrderIndex:    def.OrderIndex,
		})
	}
	return items, nil
}

// DeleteDefinitions 删除单个 key（key 非空）或整个目录（key 为空）
func (s *CatalogService) DeleteDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, key string) (int, error) {
	if err := validateCatalogScope(tenantID, entity, column); err != nil {
		return 0, err
	}

	n, err := s.catalogRepo.DeleteDefinitions(ctx, tenantID, entity, column, key)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, tenantID, entity, column)
	return n, nil
}

// KnownKeys 目录内全部 key 的集合（供文档字段访问器的可选校验使用）
func (s *CatalogService) KnownKeys(ctx context.Context, tenantID int64, entity domain.EntityKind, column string) (map[string]bool, error) {
	defs, err := s.definitions(ctx, tenantID, entity, column)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(defs))
	for _, def := range defs {
		keys[def.Key] = true
	}
	return keys, nil
}

// definitions 读取定义，经过读穿缓存
func (s *CatalogService) definitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string) ([]*domain.FieldDefinition, error) {
	if err := validateCatalogScope(tenantID, entity, column); err != nil {
		return nil, err
	}

	cacheKey := catalogCacheKey(tenantID, entity, column)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var defs []*domain.FieldDefinition
			if err := json.Unmarshal([]byte(cached), &defs); err == nil {
				s.logger.Debug("Catalog cache hit", zap.String("key", cacheKey))
				return defs, nil
			}
		} else if err != store.ErrMiss {
			s.logger.Warn("Catalog cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	defs, err := s.catalogRepo.GetDefinitions(ctx, tenantID, entity, column)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(defs); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), catalogCacheTTL); err != nil {
				s.logger.Warn("Catalog cache write failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
	return defs, nil
}

func (s *CatalogService) invalidate(ctx context.Context, tenantID int64, entity domain.EntityKind, column string) {
	if s.cache == nil {
		return
	}
	key := catalogCacheKey(tenantID, entity, column)
	if err := s.cache.Del(ctx, key); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func catalogCacheKey(tenantID int64, entity domain.EntityKind, column string) string {
	return fmt.Sprintf("catalog:%d:%s:%s", tenantID, entity, column)
}

func validateCatalogScope(tenantID int64, entity domain.EntityKind, column string) error {
	if tenantID <= 0 {
		return fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	if _, ok := domain.ParseEntityKind(string(entity)); !ok {
		return fmt.Errorf("unknown entity kind %q: %w", entity, ErrValidation)
	}
	if !entity.HasDynamicColumn(column) {
		return fmt.Errorf("entity %q has no dynamic column %q: %w", entity, column, ErrValidation)
	}
	return nil
}
