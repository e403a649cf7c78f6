package service

import (
	"time"

	"go.uber.org/zap"

	"buildbuddy-admin/internal/adapter/notification"
	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
)

// Services 所有业务服务, 由 main 创建后交给路由和定时任务
type Services struct {
	Resolver     *scope.Resolver
	Access       AccessService
	Auth         AuthService
	User         UserService
	Organization OrganizationService
	Project      ProjectService
	Invite       InviteService
	Phase        PhaseService
	Task         TaskService
	Checklist    ChecklistService
	Budget       BudgetService
	TimeLog      TimeLogService
	Shift        ShiftService
}

// NewServices 组装服务
func NewServices(
	cfg *config.Config,
	store repository.Store,
	publisher realtime.Publisher,
	notifier notification.Notifier,
	logger *zap.Logger,
) *Services {
	deps := &Deps{
		Store:     store,
		Publisher: publisher,
		Logger:    logger,
		Now:       time.Now,
	}
	access := NewAccessService(store, logger)

	return &Services{
		Resolver:     scope.NewResolver(access, logger),
		Access:       access,
		Auth:         NewAuthService(&cfg.Auth, store.Users(), NewLDAPService(&cfg.Auth.LDAP), logger),
		User:         NewUserService(deps),
		Organization: NewOrganizationService(deps),
		Project:      NewProjectService(deps),
		Invite:       NewInviteService(deps, cfg.Invite, notifier),
		Phase:        NewPhaseService(deps),
		Task:         NewTaskService(deps),
		Checklist:    NewChecklistService(deps),
		Budget:       NewBudgetService(deps),
		TimeLog:      NewTimeLogService(deps),
		Shift:        NewShiftService(deps),
	}
}
