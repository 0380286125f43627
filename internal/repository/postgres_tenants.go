package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"crediflow-data/internal/domain"
)

// PostgresTenantsRepository 租户Repository实现（强类型版本）
type PostgresTenantsRepository struct {
	db *sql.DB
}

// NewPostgresTenantsRepository 创建租户Repository
func NewPostgresTenantsRepository(db *sql.DB) *PostgresTenantsRepository {
	return &PostgresTenantsRepository{db: db}
}

// 确保实现了接口
var _ TenantsRepository = (*PostgresTenantsRepository)(nil)

// GetTenant 根据tenant_id获取租户信息
func (r *PostgresTenantsRepository) GetTenant(ctx context.Context, tenantID int64) (*domain.Tenant, error) {
	query := `
		SELECT
			tenant_id,
			tenant_name,
			COALESCE(nit, '') as nit,
			COALESCE(email, '') as email,
			COALESCE(phone, '') as phone,
			COALESCE(status, 'active') as status,
			COALESCE(metadata, '{}'::jsonb) as metadata
		FROM tenants
		WHERE tenant_id = $1
	`

	var tenant domain.Tenant
	var metadataRaw json.RawMessage
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&tenant.TenantID,
		&tenant.TenantName,
		&tenant.Nit,
		&tenant.Email,
		&tenant.Phone,
		&tenant.Status,
		&metadataRaw,
	)
	if err != nil {
		return nil, classifyError("failed to get tenant", err)
	}

	tenant.Metadata = metadataRaw
	return &tenant, nil
}

// ListTenants 查询租户列表（支持分页、过滤、搜索）
func (r *PostgresTenantsRepository) ListTenants(ctx context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	// 构建WHERE条件
	where := []string{}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("tenant_name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	// 查询总数
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tenants %s`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classifyError("failed to count tenants", err)
	}

	// 查询列表（带分页）
	query := fmt.Sprintf(`
		SELECT
			tenant_id,
			tenant_name,
			COALESCE(nit, '') as nit,
			COALESCE(email, '') as email,
			COALESCE(phone, '') as phone,
			COALESCE(status, 'active') as status,
			COALESCE(metadata, '{}'::jsonb) as metadata
		FROM tenants
		%s
		ORDER BY tenant_name
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, classifyError("failed to list tenants", err)
	}
	defer rows.Close()

	tenants := []*domain.Tenant{}
	for rows.Next() {
		var tenant domain.Tenant
		var metadataRaw json.RawMessage
		err := rows.Scan(
			&tenant.TenantID,
			&tenant.TenantName,
			&tenant.Nit,
			&tenant.Email,
			&tenant.Phone,
			&tenant.Status,
			&metadataRaw,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenant.Metadata = metadataRaw
		tenants = append(tenants, &tenant)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, classifyError("failed to iterate tenants", err)
	}

	return tenants, total, nil
}

// CreateTenant 创建新租户
func (r *PostgresTenantsRepository) CreateTenant(ctx context.Context, tenant *domain.Tenant) (int64, error) {
	if tenant == nil {
		return 0, fmt.Errorf("tenant is required")
	}
	if tenant.TenantName == "" {
		return 0, fmt.Errorf("tenant_name is required")
	}

	status := tenant.Status
	if status == "" {
		status = "active"
	}
	metadataArg := "{}"
	if len(tenant.Metadata) > 0 {
		metadataArg = string(tenant.Metadata)
	}

	var tenantID int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tenants (tenant_name, nit, email, phone, status, metadata)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6::jsonb)
		 RETURNING tenant_id`,
		tenant.TenantName,
		tenant.Nit,
		tenant.Email,
		tenant.Phone,
		status,
		metadataArg,
	).Scan(&tenantID)
	if err != nil {
		return 0, classifyError("failed to create tenant", err)
	}

	return tenantID, nil
}

// SetTenantStatus 更新租户状态
func (r *PostgresTenantsRepository) SetTenantStatus(ctx context.Context, tenantID int64, status string) error {
	if status == "" {
		return fmt.Errorf("status is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET status = $2 WHERE tenant_id = $1`,
		tenantID, status,
	)
	if err != nil {
		return classifyError("failed to set tenant status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to set tenant status: %w", ErrNotFound)
	}
	return nil
}
