package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"

	"go.uber.org/zap"
)

// DocFieldService 文档字段访问器
// 对记录的单个动态属性列（JSONB map）做读/合并/删除
// 寻址深度有意限定为一级：path 为空操作整个 map，否则只能是一个顶层 key，
// 多段路径（含 "."）一律拒绝
type DocFieldService struct {
	records repository.DynamicColumnsRepository
	catalog *CatalogService
	logger  *zap.Logger
}

// NewDocFieldService 创建文档字段访问器
func NewDocFieldService(records repository.DynamicColumnsRepository, catalog *CatalogService, logger *zap.Logger) *DocFieldService {
	return &DocFieldService{
		records: records,
		catalog: catalog,
		logger:  logger,
	}
}

// ReadFieldRequest 读取请求
type ReadFieldRequest struct {
	TenantID int64
	Entity   domain.EntityKind
	Column   string
	RecordID int64
	Path     string // 空 = 整个 map
}

// ReadFieldResponse 读取响应
// 按 key 读取时，key 不存在返回 Present=false（不是错误）
type ReadFieldResponse struct {
	Value   any  `json:"value"`
	Present bool `json:"present"`
}

// Read 读取整个动态属性 map 或其中一个顶层 key
func (s *DocFieldService) Read(ctx context.Context, req ReadFieldRequest) (*ReadFieldResponse, error) {
	if err := validateFieldScope(req.TenantID, req.Entity, req.Column, req.Path); err != nil {
		return nil, err
	}

	stored, err := s.load(ctx, req.TenantID, req.Entity, req.Column, req.RecordID)
	if err != nil {
		return nil, err
	}

	if req.Path == "" {
		return &ReadFieldResponse{Value: stored, Present: true}, nil
	}
	value, ok := stored[req.Path]
	if !ok {
		return &ReadFieldResponse{Present: false}, nil
	}
	return &ReadFieldResponse{Value: value, Present: true}, nil
}

// MergeFieldRequest 合并请求
type MergeFieldRequest struct {
	TenantID int64
	Entity   domain.EntityKind
	Column   string
	RecordID int64
	Path     string // 空 = 整 map 浅合并；否则设置单个顶层 key
	Value    any
	Validate bool // 开启后按目录校验 key（默认不校验）
}

// Merge 合并写入动态属性列
// path 为空：Value 必须是对象，做顶层浅合并（未提及的 key 保留）
// path 非空：该 key 按 Value 原样覆盖或新增
// Validate 开启时：整 map 合并要求 Value 的每个 key 都在目录中；单 key 设置要求该 key 在目录中
func (s *DocFieldService) Merge(ctx context.Context, req MergeFieldRequest) error {
	if err := validateFieldScope(req.TenantID, req.Entity, req.Column, req.Path); err != nil {
		return err
	}

	var update map[string]any
	if req.Path == "" {
		obj, ok := req.Value.(map[string]any)
		if !ok {
			return fmt.Errorf("merge without path requires an object value: %w", ErrValidation)
		}
		update = obj
	} else {
		update = map[string]any{req.Path: req.Value}
	}

	if req.Validate {
		known, err := s.catalog.KnownKeys(ctx, req.TenantID, req.Entity, req.Column)
		if err != nil {
			return err
		}
		for key := range update {
			if !known[key] {
				return fmt.Errorf("field %q is not defined in the catalog: %w", key, ErrUnknownField)
			}
		}
	}

	stored, err := s.load(ctx, req.TenantID, req.Entity, req.Column, req.RecordID)
	if err != nil {
		return err
	}

	merged := ShallowMerge(stored, update)
	return s.persist(ctx, req.TenantID, req.Entity, req.Column, req.RecordID, merged)
}

// DeleteFieldRequest 删除请求
type DeleteFieldRequest struct {
	TenantID int64
	Entity   domain.EntityKind
	Column   string
	RecordID int64
	Path     string // 必填，单个顶层 key
}

// Delete 删除动态属性 map 中的一个顶层 key
// key 不存在不报错（幂等），其余 key 原样保留
func (s *DocFieldService) Delete(ctx context.Context, req DeleteFieldRequest) error {
	if req.Path == "" {
		return fmt.Errorf("path is required: %w", ErrInvalidPath)
	}
	if err := validateFieldScope(req.TenantID, req.Entity, req.Column, req.Path); err != nil {
		return err
	}

	stored, err := s.load(ctx, req.TenantID, req.Entity, req.Column, req.RecordID)
	if err != nil {
		return err
	}

	if _, ok := stored[req.Path]; !ok {
		return nil
	}
	delete(stored, req.Path)
	return s.persist(ctx, req.TenantID, req.Entity, req.Column, req.RecordID, stored)
}

// load 读取整列并反序列化；列为 NULL/缺失时得到空 map
func (s *DocFieldService) load(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64) (map[string]any, error) {
	raw, err := s.records.GetColumn(ctx, tenantID, entity, column, recordID)
	if err != nil {
		return nil, err
	}
	stored := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, fmt.Errorf("stored %s.%s is not an object: %w", entity, column, err)
		}
	}
	return stored, nil
}

func (s *DocFieldService) persist(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s.%s: %w", entity, column, err)
	}
	return s.records.SetColumn(ctx, tenantID, entity, column, recordID, raw)
}

// validateFieldScope 在任何存储调用之前完成请求校验
func validateFieldScope(tenantID int64, entity domain.EntityKind, column string, path string) error {
	if tenantID <= 0 {
		return fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	if _, ok := domain.ParseEntityKind(string(entity)); !ok {
		return fmt.Errorf("unknown entity kind %q: %w", entity, ErrValidation)
	}
	if !entity.HasDynamicColumn(column) {
		return fmt.Errorf("entity %q has no dynamic column %q: %w", entity, column, ErrValidation)
	}
	// 一级寻址：多段路径一律拒绝
	if strings.Contains(path, ".") {
		return fmt.Errorf("path %q has more than one segment: %w", path, ErrInvalidPath)
	}
	return nil
}
