package repository

import (
	"context"

	"crediflow-data/internal/domain"
)

// UsersRepository 用户Repository接口
// 角色作用域过滤所需的查询都在这里：单个用户、批量用户、直接下属
type UsersRepository interface {
	// GetUser 根据user_id获取用户
	GetUser(ctx context.Context, tenantID int64, userID int64) (*domain.User, error)

	// GetUsersByIDs 批量获取用户（单次查询）
	// 用于列表展示的创建人/主管姓名补全：禁止逐行查询
	GetUsersByIDs(ctx context.Context, tenantID int64, ids []int64) ([]*domain.User, error)

	// ListDirectReports 查询直接下属（supervisor_id 指向给定用户的用户）
	ListDirectReports(ctx context.Context, tenantID int64, supervisorID int64) ([]*domain.User, error)
}
