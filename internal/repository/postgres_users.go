package repository

import (
	"context"
	"database/sql"
	"fmt"

	"crediflow-data/internal/domain"

	"github.com/lib/pq"
)

// PostgresUsersRepository 用户Repository实现
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建用户Repository
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

// 确保实现了接口
var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id,
	tenant_id,
	email,
	COALESCE(full_name, '') as full_name,
	role,
	COALESCE(status, 'active') as status,
	banco,
	ciudad,
	supervisor_id,
	last_login_at,
	created_at
`

func scanUser(scan func(dest ...any) error) (*domain.User, error) {
	var user domain.User
	err := scan(
		&user.UserID,
		&user.TenantID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.Status,
		&user.Banco,
		&user.Ciudad,
		&user.SupervisorID,
		&user.LastLoginAt,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser 根据user_id获取用户
func (r *PostgresUsersRepository) GetUser(ctx context.Context, tenantID int64, userID int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1 AND tenant_id = $2`, userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID, tenantID).Scan)
	if err != nil {
		return nil, classifyError("failed to get user", err)
	}
	return user, nil
}

// GetUsersByIDs 批量获取用户（单次查询）
func (r *PostgresUsersRepository) GetUsersByIDs(ctx context.Context, tenantID int64, ids []int64) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 AND user_id = ANY($2)`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(ids))
	if err != nil {
		return nil, classifyError("failed to query users by ids", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, classifyError("failed to iterate users", err)
	}
	return users, nil
}

// ListDirectReports 查询直接下属
func (r *PostgresUsersRepository) ListDirectReports(ctx context.Context, tenantID int64, supervisorID int64) ([]*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 AND supervisor_id = $2`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID, supervisorID)
	if err != nil {
		return nil, classifyError("failed to query direct reports", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, classifyError("failed to iterate direct reports", err)
	}
	return users, nil
}
