package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crediflow-data/internal/domain"
)

// PostgresDynamicColumnsRepository 动态属性列Repository实现
// 表名/列名来自 domain 实体注册表（非用户输入），可安全拼接进 SQL
type PostgresDynamicColumnsRepository struct {
	db *sql.DB
}

// NewPostgresDynamicColumnsRepository 创建动态列Repository
func NewPostgresDynamicColumnsRepository(db *sql.DB) *PostgresDynamicColumnsRepository {
	return &PostgresDynamicColumnsRepository{db: db}
}

// 确保实现了接口
var _ DynamicColumnsRepository = (*PostgresDynamicColumnsRepository)(nil)

// GetColumn 读取记录的动态列
func (r *PostgresDynamicColumnsRepository) GetColumn(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64) (json.RawMessage, error) {
	if !entity.HasDynamicColumn(column) {
		return nil, fmt.Errorf("entity %q has no dynamic column %q", entity, column)
	}

	query := fmt.Sprintf(
		`SELECT COALESCE(%s, '{}'::jsonb) FROM %s WHERE %s = $1 AND tenant_id = $2`,
		column, entity.TableName(), entity.PrimaryKey(),
	)

	var raw json.RawMessage
	err := r.db.QueryRowContext(ctx, query, recordID, tenantID).Scan(&raw)
	if err != nil {
		return nil, classifyError(fmt.Sprintf("failed to get %s.%s", entity.TableName(), column), err)
	}
	return raw, nil
}

// SetColumn 整列回写记录的动态列
func (r *PostgresDynamicColumnsRepository) SetColumn(ctx context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64, value json.RawMessage) error {
	if !entity.HasDynamicColumn(column) {
		return fmt.Errorf("entity %q has no dynamic column %q", entity, column)
	}
	if len(value) == 0 {
		value = json.RawMessage("{}")
	}

	query := fmt.Sprintf(
		`UPDATE %s SET %s = $3::jsonb WHERE %s = $1 AND tenant_id = $2`,
		entity.TableName(), column, entity.PrimaryKey(),
	)

	result, err := r.db.ExecContext(ctx, query, recordID, tenantID, string(value))
	if err != nil {
		return classifyError(fmt.Sprintf("failed to set %s.%s", entity.TableName(), column), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to set %s.%s: %w", entity.TableName(), column, ErrNotFound)
	}
	return nil
}
