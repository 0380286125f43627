package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"crediflow-data/internal/domain"
)

// MemoryUsersRepository supports unit tests and the no-DB fallback.
type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[int64]*domain.User // userID -> User
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: map[int64]*domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

// PutUser 写入用户（测试与内存回退模式使用）
func (r *MemoryUsersRepository) PutUser(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.UserID] = &copied
}

func (r *MemoryUsersRepository) GetUser(_ context.Context, tenantID int64, userID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok || user.TenantID != tenantID {
		return nil, fmt.Errorf("failed to get user: %w", ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUsersRepository) GetUsersByIDs(_ context.Context, tenantID int64, ids []int64) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.User{}
	for _, id := range ids {
		if user, ok := r.users[id]; ok && user.TenantID == tenantID {
			copied := *user
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *MemoryUsersRepository) ListDirectReports(_ context.Context, tenantID int64, supervisorID int64) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.User{}
	for _, user := range r.users {
		if user.TenantID == tenantID && user.SupervisorID.Valid && user.SupervisorID.Int64 == supervisorID {
			copied := *user
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
