package scope

import (
	"context"

	"go.uber.org/zap"

	pkgErrors "buildbuddy-admin/pkg/errors"
)

// MembershipSource 读取成员关系, 结果需按加入时间升序
type MembershipSource interface {
	ListMemberships(ctx context.Context, userID int64) ([]Membership, error)
}

// Resolver 组合成员关系读取与生效组织选择
type Resolver struct {
	source MembershipSource
	logger *zap.Logger
}

// NewResolver 创建 Resolver
func NewResolver(source MembershipSource, logger *zap.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve 读取成员关系并校验保存的选择
// 读取失败返回可重试的 ErrScopeUnavailable, 不会被当成"没有组织"
func (r *Resolver) Resolve(ctx context.Context, userID int64, email string, persisted *int64) (*Scope, error) {
	memberships, err := r.source.ListMemberships(ctx, userID)
	if err != nil {
		r.logger.Warn("读取组织成员关系失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, pkgErrors.WithCause(pkgErrors.ErrScopeUnavailable, err)
	}

	s := &Scope{
		UserID:      userID,
		Email:       email,
		Memberships: memberships,
	}
	s.ActiveOrgID, s.HasActive = ResolveActiveOrg(memberships, persisted)

	if persisted != nil && s.HasActive && *persisted != s.ActiveOrgID {
		r.logger.Debug("丢弃失效的组织选择",
			zap.Int64("user_id", userID),
			zap.Int64("persisted", *persisted),
			zap.Int64("active", s.ActiveOrgID))
	}
	return s, nil
}
