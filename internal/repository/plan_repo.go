package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildbuddy-admin/internal/model"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// PhaseRepository 实现 sequence.Writer
type PhaseRepository interface {
	Create(ctx context.Context, phase *model.ProjectPhase) error
	Update(ctx context.Context, phase *model.ProjectPhase) error
	FindByID(ctx context.Context, id int64) (*model.ProjectPhase, error)
	ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectPhase, error)
	UpdateSeq(ctx context.Context, id int64, seq int) error
	Delete(ctx context.Context, id int64) error
}

type phaseRepository struct {
	db *gorm.DB
}

func NewPhaseRepository(db *gorm.DB) PhaseRepository {
	return &phaseRepository{db: db}
}

func (r *phaseRepository) Create(ctx context.Context, phase *model.ProjectPhase) error {
	if err := r.db.WithContext(ctx).Create(phase).Error; err != nil {
		return wrapDBError("创建阶段失败", err)
	}
	return nil
}

func (r *phaseRepository) Update(ctx context.Context, phase *model.ProjectPhase) error {
	err := r.db.WithContext(ctx).Model(phase).
		Select("name", "start_date", "end_date").
		Updates(phase).Error
	if err != nil {
		return wrapDBError("更新阶段失败", err)
	}
	return nil
}

func (r *phaseRepository) FindByID(ctx context.Context, id int64) (*model.ProjectPhase, error) {
	var phase model.ProjectPhase
	if err := r.db.WithContext(ctx).First(&phase, id).Error; err != nil {
		return nil, wrapDBError("查询阶段失败", err)
	}
	return &phase, nil
}

func (r *phaseRepository) ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectPhase, error) {
	var phases []*model.ProjectPhase
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("seq ASC, id ASC").
		Find(&phases).Error
	if err != nil {
		return nil, wrapDBError("查询阶段列表失败", err)
	}
	return phases, nil
}

func (r *phaseRepository) UpdateSeq(ctx context.Context, id int64, seq int) error {
	return updateSeq(r.db.WithContext(ctx), &model.ProjectPhase{}, id, seq, "调整阶段顺序失败")
}

func (r *phaseRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.ProjectPhase{}, id)
	if result.Error != nil {
		return wrapDBError("删除阶段失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

// updateSeq 单行改序号, 行不存在视为引用过期
//
// MySQL 对值未变化的行报告 0 行受影响, 因此需要再确认行是否存在
func updateSeq(db *gorm.DB, m interface{}, id int64, seq int, message string) error {
	result := db.Model(m).Where("id = ?", id).UpdateColumn("seq", seq)
	if result.Error != nil {
		return wrapDBError(message, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := db.Model(m).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrapDBError(message, err)
	}
	if n == 0 {
		return pkgErrors.ErrStaleReference
	}
	return nil
}

// lockRow 在事务内对父记录加行锁, 同一排序范围内的读-算-写因此串行执行
func lockRow(db *gorm.DB, m interface{}, id int64, message string) error {
	var locked struct{ ID int64 }
	err := db.Model(m).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		Take(&locked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgErrors.ErrStaleReference
		}
		return wrapDBError(message, err)
	}
	return nil
}

// TaskFilter 任务查询条件, Unassigned 为真时只看未分配阶段的任务
type TaskFilter struct {
	ProjectID  int64
	PhaseID    *int64
	Unassigned bool
	AssigneeID *int64
	Status     string
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*model.Task, error)
	// ListByScope 同一排序范围 (project_id, phase_id) 内的任务, phaseID 为空表示未分配
	ListByScope(ctx context.Context, projectID int64, phaseID *int64) ([]*model.Task, error)
	UpdateSeq(ctx context.Context, id int64, seq int) error
	MovePhase(ctx context.Context, id int64, phaseID *int64, seq int) error
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return wrapDBError("创建任务失败", err)
	}
	return nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Model(task).
		Select("title", "status", "assignee_id", "due_date", "planned_hours").
		Updates(task).Error
	if err != nil {
		return wrapDBError("更新任务失败", err)
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, wrapDBError("查询任务失败", err)
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]*model.Task, error) {
	var tasks []*model.Task
	query := r.db.WithContext(ctx).Preload("Assignee").Where("project_id = ?", filter.ProjectID)
	switch {
	case filter.Unassigned:
		query = query.Where("phase_id IS NULL")
	case filter.PhaseID != nil:
		query = query.Where("phase_id = ?", *filter.PhaseID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if err := query.Order("phase_id ASC, seq ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, wrapDBError("查询任务列表失败", err)
	}
	return tasks, nil
}

func (r *taskRepository) ListByScope(ctx context.Context, projectID int64, phaseID *int64) ([]*model.Task, error) {
	return r.List(ctx, TaskFilter{ProjectID: projectID, PhaseID: phaseID, Unassigned: phaseID == nil})
}

func (r *taskRepository) UpdateSeq(ctx context.Context, id int64, seq int) error {
	return updateSeq(r.db.WithContext(ctx), &model.Task{}, id, seq, "调整任务顺序失败")
}

func (r *taskRepository) MovePhase(ctx context.Context, id int64, phaseID *int64, seq int) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"phase_id": phaseID, "seq": seq})
	if result.Error != nil {
		return wrapDBError("移动任务失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrStaleReference
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if result.Error != nil {
		return wrapDBError("删除任务失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
