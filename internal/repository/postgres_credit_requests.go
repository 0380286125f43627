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

// PostgresCreditRequestsRepository 信贷申请Repository实现
type PostgresCreditRequestsRepository struct {
	db *sql.DB
}

// NewPostgresCreditRequestsRepository 创建信贷申请Repository
func NewPostgresCreditRequestsRepository(db *sql.DB) *PostgresCreditRequestsRepository {
	return &PostgresCreditRequestsRepository{db: db}
}

// 确保实现了接口
var _ CreditRequestsRepository = (*PostgresCreditRequestsRepository)(nil)

const creditRequestColumns = `
	request_id,
	tenant_id,
	applicant_id,
	credit_type_id,
	COALESCE(status, 'pendiente') as status,
	monto,
	banco,
	ciudad,
	created_by,
	assigned_to,
	created_at,
	updated_at,
	COALESCE(atributos, '{}'::jsonb) as atributos,
	COALESCE(historial, '[]'::jsonb) as historial
`

func scanCreditRequest(scan func(dest ...any) error) (*domain.CreditRequest, error) {
	var req domain.CreditRequest
	var atributos, historial json.RawMessage
	err := scan(
		&req.RequestID,
		&req.TenantID,
		&req.ApplicantID,
		&req.CreditTypeID,
		&req.Status,
		&req.Monto,
		&req.Banco,
		&req.Ciudad,
		&req.CreatedBy,
		&req.AssignedTo,
		&req.CreatedAt,
		&req.UpdatedAt,
		&atributos,
		&historial,
	)
	if err != nil {
		return nil, err
	}
	req.Atributos = atributos
	req.Historial = historial
	return &req, nil
}

// GetCreditRequest 根据request_id获取申请
func (r *PostgresCreditRequestsRepository) GetCreditRequest(ctx context.Context, tenantID int64, requestID int64) (*domain.CreditRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit_requests WHERE request_id = $1 AND tenant_id = $2`, creditRequestColumns)

	req, err := scanCreditRequest(r.db.QueryRowContext(ctx, query, requestID, tenantID).Scan)
	if err != nil {
		return nil, classifyError("failed to get credit request", err)
	}
	return req, nil
}

// ListCreditRequests 查询申请列表（分页 + 过滤 + 作用域约束）
func (r *PostgresCreditRequestsRepository) ListCreditRequests(ctx context.Context, tenantID int64, scope RequestScope, filter CreditRequestFilters, page, size int) ([]*domain.CreditRequest, int, error) {
	// 不可满足约束：不触达存储，直接空结果
	if scope.None {
		return []*domain.CreditRequest{}, 0, nil
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	// 构建WHERE条件
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argIdx := 2

	if !scope.All {
		if scope.Banco != "" {
			where = append(where, fmt.Sprintf("banco = $%d", argIdx))
			args = append(args, scope.Banco)
			argIdx++
			if scope.Ciudad != "" {
				where = append(where, fmt.Sprintf("ciudad = $%d", argIdx))
				args = append(args, scope.Ciudad)
				argIdx++
			}
		} else if len(scope.ActorIDs) > 0 {
			where = append(where, fmt.Sprintf("(created_by = ANY($%d) OR assigned_to = ANY($%d))", argIdx, argIdx))
			args = append(args, pq.Array(scope.ActorIDs))
			argIdx++
		} else {
			// 约束缺失必须收敛：空结果，绝不退化为全租户可见
			return []*domain.CreditRequest{}, 0, nil
		}
	}

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM credit_requests %s`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classifyError("failed to count credit requests", err)
	}

	// 查询列表（带分页）
	query := fmt.Sprintf(`
		SELECT %s
		FROM credit_requests
		%s
		ORDER BY created_at DESC, request_id DESC
		LIMIT $%d OFFSET $%d
	`, creditRequestColumns, whereClause, argIdx, argIdx+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, classifyError("failed to list credit requests", err)
	}
	defer rows.Close()

	reqs := []*domain.CreditRequest{}
	for rows.Next() {
		req, err := scanCreditRequest(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan credit request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, classifyError("failed to iterate credit requests", err)
	}

	return reqs, total, nil
}

// CreateCreditRequest 创建申请
func (r *PostgresCreditRequestsRepository) CreateCreditRequest(ctx context.Context, tenantID int64, req *domain.CreditRequest) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("credit request is required")
	}
	if req.CreatedBy == 0 {
		return 0, fmt.Errorf("created_by is required")
	}

	status := req.Status
	if status == "" {
		status = domain.CreditStatusPending
	}
	atributos := "{}"
	if len(req.Atributos) > 0 {
		atributos = string(req.Atributos)
	}
	historial := "[]"
	if len(req.Historial) > 0 {
		historial = string(req.Historial)
	}

	var requestID int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO credit_requests
			(tenant_id, applicant_id, credit_type_id, status, monto, banco, ciudad,
			 created_by, assigned_to, atributos, historial, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10::jsonb, $11::jsonb, NOW(), NOW())
		 RETURNING request_id`,
		tenantID,
		req.ApplicantID,
		req.CreditTypeID,
		status,
		req.Monto,
		req.Banco.String,
		req.Ciudad.String,
		req.CreatedBy,
		req.AssignedTo,
		atributos,
		historial,
	).Scan(&requestID)
	if err != nil {
		return 0, classifyError("failed to create credit request", err)
	}

	return requestID, nil
}

// UpdateCreditRequest 按 upd 中出现的列覆盖更新
func (r *PostgresCreditRequestsRepository) UpdateCreditRequest(ctx context.Context, tenantID int64, requestID int64, upd domain.CreditRequestUpdate) error {
	updates := []string{"updated_at = NOW()"}
	args := []any{requestID, tenantID}
	argIdx := 3

	if upd.Status != nil {
		updates = append(updates, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *upd.Status)
		argIdx++
	}
	if upd.Monto != nil {
		updates = append(updates, fmt.Sprintf("monto = $%d", argIdx))
		args = append(args, *upd.Monto)
		argIdx++
	}
	if upd.Banco != nil {
		updates = append(updates, fmt.Sprintf("banco = NULLIF($%d, '')", argIdx))
		args = append(args, *upd.Banco)
		argIdx++
	}
	if upd.Ciudad != nil {
		updates = append(updates, fmt.Sprintf("ciudad = NULLIF($%d, '')", argIdx))
		args = append(args, *upd.Ciudad)
		argIdx++
	}
	if upd.AssignedTo != nil {
		updates = append(updates, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, *upd.AssignedTo)
		argIdx++
	}
	if len(upd.Atributos) > 0 {
		updates = append(updates, fmt.Sprintf("atributos = $%d::jsonb", argIdx))
		args = append(args, string(upd.Atributos))
		argIdx++
	}
	if len(upd.Historial) > 0 {
		updates = append(updates, fmt.Sprintf("historial = $%d::jsonb", argIdx))
		args = append(args, string(upd.Historial))
		argIdx++
	}

	query := fmt.Sprintf(`
		UPDATE credit_requests
		SET %s
		WHERE request_id = $1 AND tenant_id = $2
	`, strings.Join(updates, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyError("failed to update credit request", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update credit request: %w", ErrNotFound)
	}
	return nil
}
