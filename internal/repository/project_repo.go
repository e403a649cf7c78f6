package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildbuddy-admin/internal/model"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id int64) (*model.Project, error)
	// ListByParticipant 该组织作为 owner 或 vendor 参与的项目
	ListByParticipant(ctx context.Context, orgID int64, keyword string) ([]*model.Project, error)
	// LockForUpdate 锁住项目行, 阶段与任务的排序在持锁期间计算
	LockForUpdate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return wrapDBError("创建项目失败", err)
	}
	return nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error; err != nil {
		return wrapDBError("更新项目失败", err)
	}
	return nil
}

func (r *projectRepository) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Preload("Organization").First(&project, id).Error; err != nil {
		return nil, wrapDBError("查询项目失败", err)
	}
	return &project, nil
}

func (r *projectRepository) ListByParticipant(ctx context.Context, orgID int64, keyword string) ([]*model.Project, error) {
	var projects []*model.Project
	query := r.db.WithContext(ctx).Model(&model.Project{}).
		Preload("Organization").
		Joins("JOIN project_participants pp ON pp.project_id = projects.id").
		Where("pp.org_id = ?", orgID)
	if keyword != "" {
		query = query.Where("projects.name LIKE ?", "%"+keyword+"%")
	}
	if err := query.Order("projects.created_at DESC, projects.id DESC").Find(&projects).Error; err != nil {
		return nil, wrapDBError("查询项目列表失败", err)
	}
	return projects, nil
}

func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Project{}, id)
	if result.Error != nil {
		return wrapDBError("删除项目失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

type ParticipantRepository interface {
	// Ensure 不存在时插入, 已存在时返回现有记录
	Ensure(ctx context.Context, projectID, orgID int64, role string) (*model.ProjectParticipant, error)
	Find(ctx context.Context, projectID, orgID int64) (*model.ProjectParticipant, error)
	ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectParticipant, error)
	Delete(ctx context.Context, projectID, orgID int64) error
}

func (r *projectRepository) LockForUpdate(ctx context.Context, id int64) error {
	return lockRow(r.db.WithContext(ctx), &model.Project{}, id, "锁定项目失败")
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Ensure(ctx context.Context, projectID, orgID int64, role string) (*model.ProjectParticipant, error) {
	p := &model.ProjectParticipant{ProjectID: projectID, OrgID: orgID, Role: role}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, wrapDBError("添加项目参与方失败", err)
	}
	return r.Find(ctx, projectID, orgID)
}

func (r *participantRepository) Find(ctx context.Context, projectID, orgID int64) (*model.ProjectParticipant, error) {
	var p model.ProjectParticipant
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND org_id = ?", projectID, orgID).
		First(&p).Error
	if err != nil {
		return nil, wrapDBError("查询项目参与方失败", err)
	}
	return &p, nil
}

func (r *participantRepository) ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectParticipant, error) {
	var list []*model.ProjectParticipant
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBError("查询项目参与方失败", err)
	}
	return list, nil
}

func (r *participantRepository) Delete(ctx context.Context, projectID, orgID int64) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND org_id = ?", projectID, orgID).
		Delete(&model.ProjectParticipant{})
	if result.Error != nil {
		return wrapDBError("移除项目参与方失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *model.ProjectAssignment) error
	FindByID(ctx context.Context, id int64) (*model.ProjectAssignment, error)
	Find(ctx context.Context, projectID, userID int64) (*model.ProjectAssignment, error)
	ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectAssignment, error)
	Delete(ctx context.Context, id int64) error
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, a *model.ProjectAssignment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return wrapDBError("创建派工失败", err)
	}
	return nil
}

func (r *assignmentRepository) FindByID(ctx context.Context, id int64) (*model.ProjectAssignment, error) {
	var a model.ProjectAssignment
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, wrapDBError("查询派工失败", err)
	}
	return &a, nil
}

func (r *assignmentRepository) Find(ctx context.Context, projectID, userID int64) (*model.ProjectAssignment, error) {
	var a model.ProjectAssignment
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&a).Error
	if err != nil {
		return nil, wrapDBError("查询派工失败", err)
	}
	return &a, nil
}

func (r *assignmentRepository) ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectAssignment, error) {
	var list []*model.ProjectAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("EmployerOrg").
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBError("查询派工列表失败", err)
	}
	return list, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.ProjectAssignment{}, id)
	if result.Error != nil {
		return wrapDBError("删除派工失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
