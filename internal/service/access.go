package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// Deps 各业务服务共享的依赖
type Deps struct {
	Store     repository.Store
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// publish 在事务提交后通知订阅者, 失败只记日志
func (d *Deps) publish(ctx context.Context, table string, event realtime.Event, keys map[string]int64) {
	if d.Publisher == nil {
		return
	}
	if err := d.Publisher.Publish(ctx, realtime.NewChange(table, event, keys)); err != nil {
		logger.Ctx(ctx, d.Logger).Warn("发布数据变更失败",
			zap.String("table", table),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}

// requirePermission 当前生效组织中的角色是否拥有权限
func requirePermission(s *scope.Scope, perm auth.Permission) error {
	if _, err := s.RequireActive(); err != nil {
		return err
	}
	if !auth.Allow([]string{s.Role()}, perm) {
		return pkgErrors.ErrAccessDenied
	}
	return nil
}

// activeScope 读取请求中的访问范围并要求已有生效组织
func activeScope(ctx context.Context) (*scope.Scope, int64, error) {
	s, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	orgID, err := s.RequireActive()
	if err != nil {
		return nil, 0, err
	}
	return s, orgID, nil
}

// projectAccess 生效组织对某个项目的访问
type projectAccess struct {
	scope   *scope.Scope
	orgID   int64
	project *model.Project
}

// IsOwner 生效组织是否为项目所属组织
func (a *projectAccess) IsOwner() bool {
	return a.project.OrgID == a.orgID
}

// Require 检查权限, 参与方都可以执行
func (a *projectAccess) Require(perm auth.Permission) error {
	return requirePermission(a.scope, perm)
}

// RequireOwner 检查权限且只允许项目所属组织执行
func (a *projectAccess) RequireOwner(perm auth.Permission) error {
	if !a.IsOwner() {
		return pkgErrors.ErrAccessDenied
	}
	return requirePermission(a.scope, perm)
}

// OwnerOrgID 用于 ClassifyCompany
func (a *projectAccess) OwnerOrgID() *int64 {
	id := a.project.OrgID
	return &id
}

// loadProject 读取项目, 生效组织必须是该项目的参与方
func loadProject(ctx context.Context, store repository.Store, projectID int64) (*projectAccess, error) {
	s, orgID, err := activeScope(ctx)
	if err != nil {
		return nil, err
	}
	project, err := store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OrgID != orgID {
		if _, err := store.Participants().Find(ctx, projectID, orgID); err != nil {
			if errors.Is(err, pkgErrors.ErrRecordNotFound) {
				return nil, pkgErrors.ErrAccessDenied
			}
			return nil, err
		}
	}
	return &projectAccess{scope: s, orgID: orgID, project: project}, nil
}
