package service

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
)

// 用户搜索默认/最大条数
const (
	defaultUserSearchLimit = 20
	maxUserSearchLimit     = 50
)

type UserService interface {
	// Search 添加组织成员时按用户名/邮箱搜索
	Search(ctx context.Context, req *dto.UserSearchQuery) ([]*dto.UserSimpleResponse, error)
	ListRoles() []string
}

type userService struct {
	*Deps
}

func NewUserService(deps *Deps) UserService {
	return &userService{Deps: deps}
}

func (s *userService) Search(ctx context.Context, req *dto.UserSearchQuery) ([]*dto.UserSimpleResponse, error) {
	if _, err := scope.MustFromContext(ctx); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultUserSearchLimit
	}
	limit = min(limit, maxUserSearchLimit)

	users, err := s.Store.Users().Search(ctx, strings.TrimSpace(req.Keyword), limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u *model.User, _ int) *dto.UserSimpleResponse {
		return &dto.UserSimpleResponse{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Email:       u.Email,
		}
	}), nil
}

// ListRoles 按权限从高到低
func (s *userService) ListRoles() []string {
	return []string{
		string(auth.RoleOrgAdmin),
		string(auth.RoleManager),
		string(auth.RoleWorker),
	}
}
