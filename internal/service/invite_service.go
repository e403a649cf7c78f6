package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/adapter/notification"
	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// InviteService 项目邀请
//  1. Create 由项目所属组织发出, 同一项目同一邮箱只能有一个待接受的邀请
//  2. Accept 在一个事务内锁定邀请、创建派工并标记已接受, 重复接受只有一次成功
//  3. 过期、已使用、不存在、邮箱不符分别返回不同的错误
type InviteService interface {
	Create(ctx context.Context, projectID int64, req *dto.CreateInviteRequest) (*dto.InviteResponse, error)
	ListPending(ctx context.Context, projectID int64) ([]*dto.InviteResponse, error)
	ListMine(ctx context.Context) ([]*dto.InviteResponse, error)
	Revoke(ctx context.Context, inviteID int64) error
	Accept(ctx context.Context, req *dto.AcceptInviteRequest) (*dto.AcceptInviteResponse, error)
	// SweepExpired 通知 (from, to] 之间过期的邀请
	SweepExpired(ctx context.Context, from, to time.Time) (int, error)
}

type inviteService struct {
	*Deps
	cfg      config.InviteConfig
	notifier notification.Notifier
}

func NewInviteService(deps *Deps, cfg config.InviteConfig, notifier notification.Notifier) InviteService {
	if cfg.ExpireDays <= 0 {
		cfg.ExpireDays = constants.DefaultInviteExpDays
	}
	return &inviteService{
		Deps:     deps,
		cfg:      cfg,
		notifier: notifier,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *inviteService) Create(ctx context.Context, projectID int64, req *dto.CreateInviteRequest) (*dto.InviteResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermInviteCreate); err != nil {
		return nil, err
	}

	now := s.now()
	email := normalizeEmail(req.Email)
	invite := &model.ProjectInvite{
		ProjectID:     projectID,
		EmployerOrgID: req.EmployerOrgID,
		Email:         email,
		Role:          lo.Ternary(req.Role == "", constants.DefaultAssignRole, req.Role),
		Token:         uuid.NewString(),
		ExpiresAt:     now.AddDate(0, 0, s.cfg.ExpireDays),
		CreatedBy:     access.scope.UserID,
	}

	var employer *model.Organization
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		org, err := tx.Organizations().FindByID(ctx, req.EmployerOrgID)
		if err != nil {
			if errors.Is(err, pkgErrors.ErrRecordNotFound) {
				return pkgErrors.ErrStaleReference
			}
			return err
		}
		employer = org
		if _, err := tx.Invites().FindPending(ctx, projectID, email, now); err == nil {
			return pkgErrors.ErrInvitePendingExists
		} else if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return err
		}
		if employer.ID != access.project.OrgID {
			if _, err := tx.Participants().Ensure(ctx, projectID, employer.ID, constants.ParticipantRoleVendor); err != nil {
				return err
			}
		}
		return tx.Invites().Create(ctx, invite)
	})
	if err != nil {
		return nil, err
	}

	invite.Project = access.project
	invite.EmployerOrg = employer
	link := s.acceptLink(invite.Token)

	s.Logger.Info("发出项目邀请",
		zap.Int64("invite_id", invite.ID),
		zap.Int64("project_id", projectID),
		zap.String("email", email))
	s.publish(ctx, model.ProjectInviteTableName, realtime.EventInsert, map[string]int64{"id": invite.ID, "project_id": projectID})
	s.notify(ctx, notification.NotifyInviteCreated, invite, link)

	resp := toInviteResponse(invite)
	resp.Link = link
	return resp, nil
}

// acceptLink 接受邀请的页面地址
func (s *inviteService) acceptLink(token string) string {
	base := strings.TrimRight(s.cfg.AcceptURL, "/")
	return fmt.Sprintf("%s/accept-invite?token=%s", base, url.QueryEscape(token))
}

func (s *inviteService) notify(ctx context.Context, typ notification.NotificationType, invite *model.ProjectInvite, link string) {
	if s.notifier == nil {
		return
	}
	msg := &notification.InviteMessage{
		Type:      typ,
		Email:     invite.Email,
		Role:      invite.Role,
		Link:      link,
		ExpiresAt: invite.ExpiresAt,
		Timestamp: s.now(),
	}
	if invite.Project != nil {
		msg.ProjectName = invite.Project.Name
	}
	if invite.EmployerOrg != nil {
		msg.OrgName = invite.EmployerOrg.Name
	}
	if err := s.notifier.SendInvite(ctx, msg); err != nil {
		s.Logger.Warn("发送邀请通知失败", zap.Int64("invite_id", invite.ID), zap.Error(err))
	}
}

func (s *inviteService) ListPending(ctx context.Context, projectID int64) ([]*dto.InviteResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermInviteCreate); err != nil {
		return nil, err
	}
	list, err := s.Store.Invites().ListPendingByProject(ctx, projectID, s.now())
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(i *model.ProjectInvite, _ int) *dto.InviteResponse {
		return toInviteResponse(i)
	}), nil
}

// ListMine 发给当前账号邮箱的待接受邀请, 不要求已有组织
func (s *inviteService) ListMine(ctx context.Context) ([]*dto.InviteResponse, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(sc.Email)
	if email == "" {
		return []*dto.InviteResponse{}, nil
	}
	list, err := s.Store.Invites().ListPendingByEmail(ctx, email, s.now())
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(i *model.ProjectInvite, _ int) *dto.InviteResponse {
		return toInviteResponse(i)
	}), nil
}

func (s *inviteService) Revoke(ctx context.Context, inviteID int64) error {
	invite, err := s.Store.Invites().FindByID(ctx, inviteID, false)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return pkgErrors.ErrInviteNotFound
		}
		return err
	}
	access, err := loadProject(ctx, s.Store, invite.ProjectID)
	if err != nil {
		// 非参与方看不到邀请是否存在
		if errors.Is(err, pkgErrors.ErrAccessDenied) {
			return pkgErrors.ErrInviteNotFound
		}
		return err
	}
	if err := access.RequireOwner(auth.PermInviteRevoke); err != nil {
		return err
	}
	if invite.AcceptedAt != nil {
		return pkgErrors.ErrInviteAlreadyUsed
	}
	if err := s.Store.Invites().Delete(ctx, inviteID); err != nil {
		return err
	}

	s.Logger.Info("撤销项目邀请", zap.Int64("invite_id", inviteID), zap.Int64("project_id", invite.ProjectID))
	s.publish(ctx, model.ProjectInviteTableName, realtime.EventDelete, map[string]int64{"id": inviteID, "project_id": invite.ProjectID})
	return nil
}

func (s *inviteService) Accept(ctx context.Context, req *dto.AcceptInviteRequest) (*dto.AcceptInviteResponse, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var (
		invite     *model.ProjectInvite
		assignment *model.ProjectAssignment
	)
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		invite, err = lockInvite(ctx, tx, req)
		if err != nil {
			return err
		}
		if err := checkAcceptable(invite, sc, now); err != nil {
			return err
		}

		project, err := tx.Projects().FindByID(ctx, invite.ProjectID)
		if err != nil {
			if errors.Is(err, pkgErrors.ErrRecordNotFound) {
				return pkgErrors.ErrInviteNotFound
			}
			return err
		}
		invite.Project = project

		if _, err := tx.Assignments().Find(ctx, invite.ProjectID, sc.UserID); err == nil {
			return pkgErrors.ErrInviteAlreadyUsed
		} else if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return err
		}

		assignment = &model.ProjectAssignment{
			ProjectID:     invite.ProjectID,
			UserID:        sc.UserID,
			EmployerOrgID: invite.EmployerOrgID,
			Role:          invite.Role,
			IsExternal:    invite.EmployerOrgID != project.OrgID,
			AcceptedAt:    &now,
		}
		if err := tx.Assignments().Create(ctx, assignment); err != nil {
			return err
		}
		if assignment.IsExternal {
			if _, err := tx.Participants().Ensure(ctx, invite.ProjectID, invite.EmployerOrgID, constants.ParticipantRoleVendor); err != nil {
				return err
			}
		}

		// 条件更新, 并发接受时只有一个事务能改到这一行
		ok, err := tx.Invites().MarkAccepted(ctx, invite.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return pkgErrors.ErrInviteAlreadyUsed
		}
		invite.AcceptedAt = &now
		return nil
	})
	if err != nil {
		if invite != nil {
			s.Logger.Info("接受邀请失败",
				zap.Int64("invite_id", invite.ID),
				zap.Int64("user_id", sc.UserID),
				zap.Error(err))
		}
		return nil, err
	}

	s.Logger.Info("接受项目邀请",
		zap.Int64("invite_id", invite.ID),
		zap.Int64("project_id", invite.ProjectID),
		zap.Int64("user_id", sc.UserID))
	s.publish(ctx, model.ProjectInviteTableName, realtime.EventUpdate, map[string]int64{"id": invite.ID, "project_id": invite.ProjectID})
	s.publish(ctx, model.ProjectAssignmentTableName, realtime.EventInsert, map[string]int64{"id": assignment.ID, "project_id": invite.ProjectID, "user_id": sc.UserID})
	s.notify(ctx, notification.NotifyInviteAccepted, invite, "")

	return &dto.AcceptInviteResponse{
		ProjectID:  invite.ProjectID,
		Assignment: toAssignmentResponse(assignment, lo.ToPtr(invite.Project.OrgID)),
	}, nil
}

// lockInvite 按 token 或 id 读取并锁定邀请
func lockInvite(ctx context.Context, tx repository.Store, req *dto.AcceptInviteRequest) (*model.ProjectInvite, error) {
	var (
		invite *model.ProjectInvite
		err    error
	)
	if req.Token != "" {
		invite, err = tx.Invites().FindByToken(ctx, strings.TrimSpace(req.Token), true)
	} else {
		invite, err = tx.Invites().FindByID(ctx, req.InviteID, true)
	}
	if errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return nil, pkgErrors.ErrInviteNotFound
	}
	return invite, err
}

// checkAcceptable 已使用优先于过期, 邮箱校验在最后
func checkAcceptable(invite *model.ProjectInvite, sc *scope.Scope, now time.Time) error {
	if invite.AcceptedAt != nil {
		return pkgErrors.ErrInviteAlreadyUsed
	}
	if invite.IsExpired(now) {
		return pkgErrors.ErrInviteExpired
	}
	if normalizeEmail(sc.Email) != normalizeEmail(invite.Email) {
		return pkgErrors.ErrInviteEmailMismatch
	}
	return nil
}

func (s *inviteService) SweepExpired(ctx context.Context, from, to time.Time) (int, error) {
	list, err := s.Store.Invites().ListExpiredBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	for _, invite := range list {
		s.publish(ctx, model.ProjectInviteTableName, realtime.EventUpdate, map[string]int64{"id": invite.ID, "project_id": invite.ProjectID})
		s.notify(ctx, notification.NotifyInviteExpired, invite, "")
	}
	return len(list), nil
}

func toInviteResponse(i *model.ProjectInvite) *dto.InviteResponse {
	resp := &dto.InviteResponse{
		ID:            i.ID,
		ProjectID:     i.ProjectID,
		EmployerOrgID: i.EmployerOrgID,
		Email:         i.Email,
		Role:          i.Role,
		ExpiresAt:     dto.FormatTime(i.ExpiresAt),
		AcceptedAt:    dto.FormatTimePtr(i.AcceptedAt),
		CreatedAt:     dto.FormatTime(i.CreatedAt),
	}
	if i.Project != nil {
		resp.ProjectName = i.Project.Name
	}
	if i.EmployerOrg != nil {
		resp.EmployerName = i.EmployerOrg.Name
	}
	return resp
}
