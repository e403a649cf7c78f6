package service

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/repository"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// AccessService 读取成员关系, 并维护用户保存的组织选择
//  1. ListMemberships 供 scope.Resolver 使用, 按加入时间升序
//  2. PersistedChoice 读取 users.active_org_id, 请求头未携带选择时使用
//  3. SetActiveOrg 校验成员关系后保存选择
type AccessService interface {
	scope.MembershipSource
	PersistedChoice(ctx context.Context, userID int64) (*int64, error)
	Me(ctx context.Context) (*dto.MeResponse, error)
	SetActiveOrg(ctx context.Context, orgID int64) (*dto.MembershipResponse, error)
}

type accessService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewAccessService 创建 AccessService
func NewAccessService(store repository.Store, logger *zap.Logger) AccessService {
	return &accessService{
		store:  store,
		logger: logger,
	}
}

func (s *accessService) ListMemberships(ctx context.Context, userID int64) ([]scope.Membership, error) {
	members, err := s.store.Members().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(members, func(m *model.OrganizationMember, _ int) scope.Membership {
		name := ""
		if m.Organization != nil {
			name = m.Organization.Name
		}
		return scope.Membership{
			OrgID:    m.OrgID,
			Role:     m.Role,
			OrgName:  name,
			JoinedAt: m.CreatedAt,
		}
	}), nil
}

func (s *accessService) PersistedChoice(ctx context.Context, userID int64) (*int64, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return nil, pkgErrors.ErrUnauthorized
		}
		return nil, err
	}
	return user.ActiveOrgID, nil
}

func (s *accessService) Me(ctx context.Context) (*dto.MeResponse, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByID(ctx, sc.UserID)
	if err != nil {
		return nil, err
	}

	resp := &dto.MeResponse{
		User:        toUserInfo(user),
		Memberships: toMembershipResponses(sc),
		NeedsSetup:  !sc.HasActive,
	}
	if sc.HasActive {
		resp.ActiveOrgID = lo.ToPtr(sc.ActiveOrgID)
	}
	return resp, nil
}

func (s *accessService) SetActiveOrg(ctx context.Context, orgID int64) (*dto.MembershipResponse, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := sc.Membership(orgID)
	if !ok {
		return nil, pkgErrors.ErrAccessDenied
	}
	if err := s.store.Users().UpdateActiveOrg(ctx, sc.UserID, &orgID); err != nil {
		return nil, err
	}
	s.logger.Info("切换生效组织", zap.Int64("user_id", sc.UserID), zap.Int64("org_id", orgID))
	return &dto.MembershipResponse{
		OrgID:    m.OrgID,
		OrgName:  m.OrgName,
		Role:     m.Role,
		JoinedAt: dto.FormatTime(m.JoinedAt),
		Active:   true,
	}, nil
}

func toMembershipResponses(sc *scope.Scope) []*dto.MembershipResponse {
	return lo.Map(sc.Memberships, func(m scope.Membership, _ int) *dto.MembershipResponse {
		return &dto.MembershipResponse{
			OrgID:    m.OrgID,
			OrgName:  m.OrgName,
			Role:     m.Role,
			JoinedAt: dto.FormatTime(m.JoinedAt),
			Active:   sc.HasActive && sc.ActiveOrgID == m.OrgID,
		}
	})
}

func toUserInfo(u *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.EmailValue(),
		DisplayName: u.Name(),
		AuthType:    u.AuthProvider,
	}
}
