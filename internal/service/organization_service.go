package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// maxSlugAttempts slug 冲突时追加数字后缀的最大次数
const maxSlugAttempts = 50

type OrganizationService interface {
	// CreateWithAdmin 创建组织, 创建人在同一事务中成为 org_admin
	CreateWithAdmin(ctx context.Context, req *dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error)
	Get(ctx context.Context, orgID int64) (*dto.OrganizationResponse, error)
	Update(ctx context.Context, orgID int64, req *dto.UpdateOrganizationRequest) (*dto.OrganizationResponse, error)
	ListMembers(ctx context.Context, orgID int64) ([]*dto.MemberResponse, error)
	AddMember(ctx context.Context, orgID int64, req *dto.AddMemberRequest) (*dto.MemberResponse, error)
	UpdateMemberRole(ctx context.Context, orgID, userID int64, req *dto.UpdateMemberRoleRequest) error
	RemoveMember(ctx context.Context, orgID, userID int64) error
}

type organizationService struct {
	*Deps
}

func NewOrganizationService(deps *Deps) OrganizationService {
	return &organizationService{Deps: deps}
}

func (s *organizationService) CreateWithAdmin(ctx context.Context, req *dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = constants.DefaultOrgName
	}

	org := &model.Organization{
		Name:          name,
		CreatedBy:     sc.UserID,
		WhatsappPhone: req.WhatsappPhone,
	}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		orgSlug, err := uniqueSlug(ctx, tx.Organizations(), name)
		if err != nil {
			return err
		}
		org.Slug = orgSlug
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return err
		}
		return tx.Members().Create(ctx, &model.OrganizationMember{
			OrgID:  org.ID,
			UserID: sc.UserID,
			Role:   constants.OrgRoleAdmin,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("创建组织", zap.Int64("org_id", org.ID), zap.String("slug", org.Slug), zap.Int64("user_id", sc.UserID))
	s.publish(ctx, model.OrganizationTableName, realtime.EventInsert, map[string]int64{"id": org.ID, "org_id": org.ID})
	s.publish(ctx, model.OrganizationMemberTableName, realtime.EventInsert, map[string]int64{"org_id": org.ID, "user_id": sc.UserID})
	return toOrganizationResponse(org), nil
}

// uniqueSlug 由名称生成 slug, 已存在时追加 -2, -3 ...
func uniqueSlug(ctx context.Context, repo repository.OrganizationRepository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = slug.Make(constants.DefaultOrgName)
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", pkgErrors.New(pkgErrors.CodeConflict, "组织标识冲突, 请更换名称")
}

// memberScope 要求当前身份是该组织成员
func memberScope(ctx context.Context, orgID int64) (*scope.Scope, scope.Membership, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, scope.Membership{}, err
	}
	m, ok := sc.Membership(orgID)
	if !ok {
		return nil, scope.Membership{}, pkgErrors.ErrAccessDenied
	}
	return sc, m, nil
}

func requireOrgPermission(m scope.Membership, perm auth.Permission) error {
	if !auth.Allow([]string{m.Role}, perm) {
		return pkgErrors.ErrAccessDenied
	}
	return nil
}

func (s *organizationService) Get(ctx context.Context, orgID int64) (*dto.OrganizationResponse, error) {
	if _, _, err := memberScope(ctx, orgID); err != nil {
		return nil, err
	}
	org, err := s.Store.Organizations().FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return toOrganizationResponse(org), nil
}

func (s *organizationService) Update(ctx context.Context, orgID int64, req *dto.UpdateOrganizationRequest) (*dto.OrganizationResponse, error) {
	_, m, err := memberScope(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := requireOrgPermission(m, auth.PermOrgUpdate); err != nil {
		return nil, err
	}

	org, err := s.Store.Organizations().FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
	}
	if req.WhatsappPhone != nil {
		org.WhatsappPhone = req.WhatsappPhone
	}
	if err := s.Store.Organizations().Update(ctx, org); err != nil {
		return nil, err
	}

	s.publish(ctx, model.OrganizationTableName, realtime.EventUpdate, map[string]int64{"id": org.ID, "org_id": org.ID})
	return toOrganizationResponse(org), nil
}

func (s *organizationService) ListMembers(ctx context.Context, orgID int64) ([]*dto.MemberResponse, error) {
	_, m, err := memberScope(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := requireOrgPermission(m, auth.PermMemberView); err != nil {
		return nil, err
	}
	members, err := s.Store.Members().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return lo.Map(members, func(m *model.OrganizationMember, _ int) *dto.MemberResponse {
		return toMemberResponse(m)
	}), nil
}

func (s *organizationService) AddMember(ctx context.Context, orgID int64, req *dto.AddMemberRequest) (*dto.MemberResponse, error) {
	_, m, err := memberScope(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := requireOrgPermission(m, auth.PermMemberManage); err != nil {
		return nil, err
	}

	user, err := s.Store.Users().FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return nil, pkgErrors.ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.Store.Members().Find(ctx, orgID, user.ID); err == nil {
		return nil, pkgErrors.New(pkgErrors.CodeConflict, "该用户已是组织成员")
	} else if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return nil, err
	}

	member := &model.OrganizationMember{OrgID: orgID, UserID: user.ID, Role: req.Role, User: user}
	if err := s.Store.Members().Create(ctx, member); err != nil {
		return nil, err
	}

	s.publish(ctx, model.OrganizationMemberTableName, realtime.EventInsert, map[string]int64{"org_id": orgID, "user_id": user.ID})
	return toMemberResponse(member), nil
}

func (s *organizationService) UpdateMemberRole(ctx context.Context, orgID, userID int64, req *dto.UpdateMemberRoleRequest) error {
	_, m, err := memberScope(ctx, orgID)
	if err != nil {
		return err
	}
	if err := requireOrgPermission(m, auth.PermMemberManage); err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		target, err := tx.Members().Find(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if target.Role == constants.OrgRoleAdmin && req.Role != constants.OrgRoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, orgID); err != nil {
				return err
			}
		}
		return tx.Members().UpdateRole(ctx, orgID, userID, req.Role)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, model.OrganizationMemberTableName, realtime.EventUpdate, map[string]int64{"org_id": orgID, "user_id": userID})
	return nil
}

func (s *organizationService) RemoveMember(ctx context.Context, orgID, userID int64) error {
	sc, m, err := memberScope(ctx, orgID)
	if err != nil {
		return err
	}
	// 成员可以自行退出, 移除他人需要管理权限
	if userID != sc.UserID {
		if err := requireOrgPermission(m, auth.PermMemberManage); err != nil {
			return err
		}
	}

	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		target, err := tx.Members().Find(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if target.Role == constants.OrgRoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, orgID); err != nil {
				return err
			}
		}
		return tx.Members().Delete(ctx, orgID, userID)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("移除组织成员", zap.Int64("org_id", orgID), zap.Int64("user_id", userID))
	s.publish(ctx, model.OrganizationMemberTableName, realtime.EventDelete, map[string]int64{"org_id": orgID, "user_id": userID})
	return nil
}

// ensureAnotherAdmin 组织至少保留一个管理员
func ensureAnotherAdmin(ctx context.Context, tx repository.Store, orgID int64) error {
	admins, err := tx.Members().CountByRole(ctx, orgID, constants.OrgRoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return pkgErrors.New(pkgErrors.CodeConflict, "组织至少需要保留一名管理员")
	}
	return nil
}

func toOrganizationResponse(org *model.Organization) *dto.OrganizationResponse {
	return &dto.OrganizationResponse{
		ID:            org.ID,
		Name:          org.Name,
		Slug:          org.Slug,
		CreatedBy:     org.CreatedBy,
		WhatsappPhone: org.WhatsappPhone,
		CreatedAt:     dto.FormatTime(org.CreatedAt),
	}
}

func toMemberResponse(m *model.OrganizationMember) *dto.MemberResponse {
	resp := &dto.MemberResponse{
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: dto.FormatTime(m.CreatedAt),
	}
	if m.User != nil {
		resp.Username = m.User.Username
		resp.DisplayName = m.User.Name()
		resp.Email = m.User.Email
	}
	return resp
}
