package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"crediflow-data/internal/domain"

	"github.com/lib/pq"
)

// PostgresFieldCatalogRepository 动态属性定义目录Repository实现
// 对应 field_definitions 表，唯一约束 (tenant_id, entity_kind, column_name, field_key)
type PostgresFieldCatalogRepository struct {
	db *sql.DB
}

// NewPostgresFieldCatalogRepository 创建目录Repository
func NewPostgresFieldCatalogRepository(db *sql.DB) *PostgresFieldCatalogRepository {
	return &PostgresFieldCatalogRepository{db: db}
}

// 确保实现了接口
var _ FieldCatalogRepository = (*PostgresFieldCatalogRepository)(nil)

// GetDefinitions 获取目录下全部定义
func (r *PostgresFieldCatalogRepository) GetDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string) ([]*domain.FieldDefinition, error) {
	query := `
		SELECT
			field_key,
			field_type,
			required,
			COALESCE(allowed_values, 'null'::jsonb) as allowed_values,
			COALESCE(description, '') as description,
			COALESCE(default_value, 'null'::jsonb) as default_value,
			COALESCE(conditional_on, 'null'::jsonb) as conditional_on,
			order_index
		FROM field_definitions
		WHERE tenant_id = $1 AND entity_kind = $2 AND column_name = $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, string(entity), column)
	if err != nil {
		return nil, classifyError("failed to query field definitions", err)
	}
	defer rows.Close()

	defs := []*domain.FieldDefinition{}
	for rows.Next() {
		def := &domain.FieldDefinition{
			TenantID:   tenantID,
			EntityKind: entity,
			ColumnName: column,
		}
		var allowedRaw, defaultRaw, conditionalRaw json.RawMessage
		var orderIndex sql.NullInt64
		err := rows.Scan(
			&def.Key,
			&def.Type,
			&def.Required,
			&allowedRaw,
			&def.Description,
			&defaultRaw,
			&conditionalRaw,
			&orderIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field definition: %w", err)
		}

		// allowed_values 兼容遗留裸数组编码，统一规范化
		def.AllowedValues, err = domain.NormalizeAllowedValues(allowedRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize allowed_values for key %q: %w", def.Key, err)
		}
		if string(defaultRaw) != "null" {
			def.DefaultValue = defaultRaw
		}
		if string(conditionalRaw) != "null" {
			var cond domain.Condition
			if err := json.Unmarshal(conditionalRaw, &cond); err == nil {
				def.ConditionalOn = &cond
			}
		}
		if orderIndex.Valid {
			v := int(orderIndex.Int64)
			def.OrderIndex = &v
		}
		defs = append(defs, def)
	}

	if err = rows.Err(); err != nil {
		return nil, classifyError("failed to iterate field definitions", err)
	}

	return defs, nil
}

// ReplaceDefinitions 按 key 做 delete-then-insert 式替换
func (r *PostgresFieldCatalogRepository) ReplaceDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, items []*domain.FieldDefinition) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Key) == "" {
			return fmt.Errorf("field definition key is required")
		}
		keys = append(keys, item.Key)
	}

	// 先删除被触及的 key（非事务：与 insert 之间存在短暂窗口，见接口注释）
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM field_definitions
		 WHERE tenant_id = $1 AND entity_kind = $2 AND column_name = $3 AND field_key = ANY($4)`,
		tenantID, string(entity), column, pq.Array(keys),
	)
	if err != nil {
		return classifyError("failed to delete field definitions", err)
	}

	for _, item := range items {
		var allowedArg, defaultArg, conditionalArg any
		if item.AllowedValues != nil {
			b, err := json.Marshal(item.AllowedValues)
			if err != nil {
				return fmt.Errorf("failed to marshal allowed_values for key %q: %w", item.Key, err)
			}
			allowedArg = string(b)
		}
		if len(item.DefaultValue) > 0 {
			defaultArg = string(item.DefaultValue)
		}
		if item.ConditionalOn != nil {
			b, err := json.Marshal(item.ConditionalOn)
			if err != nil {
				return fmt.Errorf("failed to marshal conditional_on for key %q: %w", item.Key, err)
			}
			conditionalArg = string(b)
		}
		var orderArg any
		if item.OrderIndex != nil {
			orderArg = *item.OrderIndex
		}

		_, err := r.db.ExecContext(ctx,
			`INSERT INTO field_definitions
				(tenant_id, entity_kind, column_name, field_key, field_type, required,
				 allowed_values, description, default_value, conditional_on, order_index)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, NULLIF($8, ''), $9::jsonb, $10::jsonb, $11)`,
			tenantID, string(entity), column, item.Key, item.Type, item.Required,
			allowedArg, item.Description, defaultArg, conditionalArg, orderArg,
		)
		if err != nil {
			return classifyError(fmt.Sprintf("failed to insert field definition %q", item.Key), err)
		}
	}

	return nil
}

// DeleteDefinitions 删除单个 key 或整个目录
func (r *PostgresFieldCatalogRepository) DeleteDefinitions(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, key string) (int, error) {
	query := `DELETE FROM field_definitions WHERE tenant_id = $1 AND entity_kind = $2 AND column_name = $3`
	args := []any{tenantID, string(entity), column}
	if key != "" {
		query += ` AND field_key = $4`
		args = append(args, key)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyError("failed to delete field definitions", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}
