package service

import (
	"context"
	"fmt"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"
)

// Role 角色（封闭枚举）
// 用封闭变体替代裸字符串比较：每个变体有独立的作用域构建分支，
// 未识别角色是显式变体而不是隐式 else
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleCompany
	RoleBank
	RoleSupervisor
	RoleAnalyst
)

// ParseRole 解析角色代码；未识别的代码映射为 RoleUnknown
func ParseRole(code string) Role {
	switch code {
	case domain.RoleCodeAdmin:
		return RoleAdmin
	case domain.RoleCodeCompany:
		return RoleCompany
	case domain.RoleCodeBank:
		return RoleBank
	case domain.RoleCodeSupervisor:
		return RoleSupervisor
	case domain.RoleCodeAnalyst:
		return RoleAnalyst
	default:
		return RoleUnknown
	}
}

// BuildRequestScope 由操作者推导查询作用域约束
// 失败安全原则：构建作用域所需的任何上下文缺失都必须收敛结果集（None），
// 绝不放宽为全租户可见
//
//	admin / empresa  -> 全租户可见
//	banco            -> 机构名称等值；机构缺失 -> None；城市存在时叠加等值
//	supervisor       -> created_by/assigned_to ∈ {本人} ∪ {直接下属}（一次批量查询）
//	asesor           -> created_by/assigned_to = 本人
//	未识别            -> None
func BuildRequestScope(ctx context.Context, actor *domain.User, users repository.UsersRepository) (repository.RequestScope, error) {
	if actor == nil {
		return repository.RequestScope{None: true}, nil
	}

	switch ParseRole(actor.Role) {
	case RoleAdmin, RoleCompany:
		return repository.RequestScope{All: true}, nil

	case RoleBank:
		if !actor.Banco.Valid || actor.Banco.String == "" {
			return repository.RequestScope{None: true}, nil
		}
		scope := repository.RequestScope{Banco: actor.Banco.String}
		if actor.Ciudad.Valid && actor.Ciudad.String != "" {
			scope.Ciudad = actor.Ciudad.String
		}
		return scope, nil

	case RoleSupervisor:
		reports, err := users.ListDirectReports(ctx, actor.TenantID, actor.UserID)
		if err != nil {
			return repository.RequestScope{None: true}, fmt.Errorf("failed to resolve direct reports: %w", err)
		}
		ids := make([]int64, 0, len(reports)+1)
		ids = append(ids, actor.UserID)
		for _, report := range reports {
			ids = append(ids, report.UserID)
		}
		return repository.RequestScope{ActorIDs: ids}, nil

	case RoleAnalyst:
		return repository.RequestScope{ActorIDs: []int64{actor.UserID}}, nil

	case RoleUnknown:
		return repository.RequestScope{None: true}, nil
	}

	return repository.RequestScope{None: true}, nil
}
