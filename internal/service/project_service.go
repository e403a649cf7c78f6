package service

import (
	"context"
	"errors"
	"strings"

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

type ProjectService interface {
	// Create 项目与所属组织的 owner 参与方在同一事务中写入
	Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	List(ctx context.Context, req *dto.ProjectListQuery) ([]*dto.ProjectResponse, error)
	Get(ctx context.Context, id int64) (*dto.ProjectResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, id int64) error

	ListParticipants(ctx context.Context, projectID int64) ([]*dto.ParticipantResponse, error)
	AddVendor(ctx context.Context, projectID int64, req *dto.AddVendorRequest) (*dto.ParticipantResponse, error)
	RemoveVendor(ctx context.Context, projectID, orgID int64) error

	ListAssignments(ctx context.Context, projectID int64, req *dto.AssignmentListQuery) ([]*dto.AssignmentResponse, error)
	RemoveAssignment(ctx context.Context, assignmentID int64) error
}

type projectService struct {
	*Deps
}

func NewProjectService(deps *Deps) ProjectService {
	return &projectService{Deps: deps}
}

func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	sc, orgID, err := activeScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(sc, auth.PermProjectCreate); err != nil {
		return nil, err
	}

	project := &model.Project{
		OrgID:  orgID,
		Name:   strings.TrimSpace(req.Name),
		Status: lo.Ternary(req.Status == "", constants.ProjectStatusPlanning, req.Status),
		Budget: req.Budget,
	}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Create(ctx, project); err != nil {
			return err
		}
		_, err := tx.Participants().Ensure(ctx, project.ID, orgID, constants.ParticipantRoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("创建项目", zap.Int64("project_id", project.ID), zap.Int64("org_id", orgID))
	s.publish(ctx, model.ProjectTableName, realtime.EventInsert, map[string]int64{"id": project.ID, "org_id": orgID})
	s.publish(ctx, model.ProjectParticipantTableName, realtime.EventInsert, map[string]int64{"project_id": project.ID, "org_id": orgID})
	return toProjectResponse(project, orgID), nil
}

func (s *projectService) List(ctx context.Context, req *dto.ProjectListQuery) ([]*dto.ProjectResponse, error) {
	sc, orgID, err := activeScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(sc, auth.PermProjectView); err != nil {
		return nil, err
	}
	projects, err := s.Store.Projects().ListByParticipant(ctx, orgID, strings.TrimSpace(req.Keyword))
	if err != nil {
		return nil, err
	}
	return lo.Map(projects, func(p *model.Project, _ int) *dto.ProjectResponse {
		return toProjectResponse(p, orgID)
	}), nil
}

func (s *projectService) Get(ctx context.Context, id int64) (*dto.ProjectResponse, error) {
	access, err := loadProject(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermProjectView); err != nil {
		return nil, err
	}
	return toProjectResponse(access.project, access.orgID), nil
}

func (s *projectService) Update(ctx context.Context, id int64, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	access, err := loadProject(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermProjectUpdate); err != nil {
		return nil, err
	}

	project := access.project
	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.Budget != nil {
		project.Budget = req.Budget
	}
	if err := s.Store.Projects().Update(ctx, project); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ProjectTableName, realtime.EventUpdate, map[string]int64{"id": project.ID, "org_id": project.OrgID})
	return toProjectResponse(project, access.orgID), nil
}

func (s *projectService) Delete(ctx context.Context, id int64) error {
	access, err := loadProject(ctx, s.Store, id)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermProjectDelete); err != nil {
		return err
	}
	if err := s.Store.Projects().Delete(ctx, id); err != nil {
		return err
	}

	s.Logger.Info("删除项目", zap.Int64("project_id", id))
	s.publish(ctx, model.ProjectTableName, realtime.EventDelete, map[string]int64{"id": id, "org_id": access.project.OrgID})
	return nil
}

func (s *projectService) ListParticipants(ctx context.Context, projectID int64) ([]*dto.ParticipantResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermProjectView); err != nil {
		return nil, err
	}
	list, err := s.Store.Participants().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(p *model.ProjectParticipant, _ int) *dto.ParticipantResponse {
		return toParticipantResponse(p)
	}), nil
}

func (s *projectService) AddVendor(ctx context.Context, projectID int64, req *dto.AddVendorRequest) (*dto.ParticipantResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermVendorManage); err != nil {
		return nil, err
	}

	var participant *model.ProjectParticipant
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		org, err := s.resolveVendorOrg(ctx, tx, access.scope, req)
		if err != nil {
			return err
		}
		if org.ID == access.project.OrgID {
			return pkgErrors.New(pkgErrors.CodeBadRequest, "所属组织不能作为外包方")
		}
		participant, err = tx.Participants().Ensure(ctx, projectID, org.ID, constants.ParticipantRoleVendor)
		if err != nil {
			return err
		}
		participant.Organization = org
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ProjectParticipantTableName, realtime.EventInsert, map[string]int64{"project_id": projectID, "org_id": participant.OrgID})
	return toParticipantResponse(participant), nil
}

// resolveVendorOrg 选择已有组织或按名称新建外包组织
func (s *projectService) resolveVendorOrg(ctx context.Context, tx repository.Store, sc *scope.Scope, req *dto.AddVendorRequest) (*model.Organization, error) {
	if req.OrgID != nil {
		org, err := tx.Organizations().FindByID(ctx, *req.OrgID)
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return nil, pkgErrors.ErrStaleReference
		}
		return org, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "外包组织名称不能为空")
	}
	orgSlug, err := uniqueSlug(ctx, tx.Organizations(), name)
	if err != nil {
		return nil, err
	}
	org := &model.Organization{Name: name, Slug: orgSlug, CreatedBy: sc.UserID}
	if err := tx.Organizations().Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *projectService) RemoveVendor(ctx context.Context, projectID, orgID int64) error {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermVendorManage); err != nil {
		return err
	}
	p, err := s.Store.Participants().Find(ctx, projectID, orgID)
	if err != nil {
		return err
	}
	if p.Role == constants.ParticipantRoleOwner {
		return pkgErrors.New(pkgErrors.CodeConflict, "不能移除项目所属组织")
	}
	if err := s.Store.Participants().Delete(ctx, projectID, orgID); err != nil {
		return err
	}

	s.publish(ctx, model.ProjectParticipantTableName, realtime.EventDelete, map[string]int64{"project_id": projectID, "org_id": orgID})
	return nil
}

func (s *projectService) ListAssignments(ctx context.Context, projectID int64, req *dto.AssignmentListQuery) ([]*dto.AssignmentResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermProjectView); err != nil {
		return nil, err
	}
	list, err := s.Store.Assignments().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	owner := access.OwnerOrgID()
	resp := lo.Map(list, func(a *model.ProjectAssignment, _ int) *dto.AssignmentResponse {
		return toAssignmentResponse(a, owner)
	})
	return lo.Filter(resp, func(a *dto.AssignmentResponse, _ int) bool {
		return matchCompany(req.Company, scope.Company(a.Company))
	}), nil
}

func (s *projectService) RemoveAssignment(ctx context.Context, assignmentID int64) error {
	a, err := s.Store.Assignments().FindByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	access, err := loadProject(ctx, s.Store, a.ProjectID)
	if err != nil {
		return err
	}
	// 外包方可以撤回自己组织的派工
	if !access.IsOwner() && a.EmployerOrgID != access.orgID {
		return pkgErrors.ErrAccessDenied
	}
	if err := access.Require(auth.PermAssignmentManage); err != nil {
		return err
	}
	if err := s.Store.Assignments().Delete(ctx, assignmentID); err != nil {
		return err
	}

	s.publish(ctx, model.ProjectAssignmentTableName, realtime.EventDelete, map[string]int64{"id": assignmentID, "project_id": a.ProjectID})
	return nil
}

// matchCompany all/internal/vendors 过滤
func matchCompany(filter string, c scope.Company) bool {
	switch filter {
	case constants.CompanyFilterInternal:
		return c == scope.Internal
	case constants.CompanyFilterVendors:
		return c == scope.Vendor
	default:
		return true
	}
}

func toProjectResponse(p *model.Project, activeOrgID int64) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:        p.ID,
		OrgID:     p.OrgID,
		Name:      p.Name,
		Status:    p.Status,
		Budget:    p.Budget,
		IsOwner:   p.OrgID == activeOrgID,
		CreatedAt: dto.FormatTime(p.CreatedAt),
	}
	if p.Organization != nil {
		resp.OrgName = p.Organization.Name
	}
	return resp
}

func toParticipantResponse(p *model.ProjectParticipant) *dto.ParticipantResponse {
	resp := &dto.ParticipantResponse{
		OrgID:     p.OrgID,
		Role:      p.Role,
		CreatedAt: dto.FormatTime(p.CreatedAt),
	}
	if p.Organization != nil {
		resp.OrgName = p.Organization.Name
	}
	return resp
}

func toAssignmentResponse(a *model.ProjectAssignment, ownerOrgID *int64) *dto.AssignmentResponse {
	resp := &dto.AssignmentResponse{
		ID:            a.ID,
		ProjectID:     a.ProjectID,
		UserID:        a.UserID,
		EmployerOrgID: a.EmployerOrgID,
		Role:          a.Role,
		IsExternal:    a.IsExternal,
		Company:       string(scope.ClassifyCompany(a.EmployerOrgID, ownerOrgID)),
		AcceptedAt:    dto.FormatTimePtr(a.AcceptedAt),
	}
	if a.User != nil {
		resp.UserName = a.User.Name()
		resp.Email = a.User.Email
	}
	if a.EmployerOrg != nil {
		resp.EmployerName = a.EmployerOrg.Name
	}
	return resp
}
