package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type BudgetLineRepository interface {
	Create(ctx context.Context, line *model.BudgetLine) error
	Update(ctx context.Context, line *model.BudgetLine) error
	FindByID(ctx context.Context, id int64) (*model.BudgetLine, error)
	ListByProject(ctx context.Context, projectID int64) ([]*model.BudgetLine, error)
	Delete(ctx context.Context, id int64) error
}

type budgetLineRepository struct {
	db *gorm.DB
}

func NewBudgetLineRepository(db *gorm.DB) BudgetLineRepository {
	return &budgetLineRepository{db: db}
}

func (r *budgetLineRepository) Create(ctx context.Context, line *model.BudgetLine) error {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return wrapDBError("创建预算明细失败", err)
	}
	return nil
}

func (r *budgetLineRepository) Update(ctx context.Context, line *model.BudgetLine) error {
	err := r.db.WithContext(ctx).Model(line).
		Select("category", "name", "planned_amount", "currency").
		Updates(line).Error
	if err != nil {
		return wrapDBError("更新预算明细失败", err)
	}
	return nil
}

func (r *budgetLineRepository) FindByID(ctx context.Context, id int64) (*model.BudgetLine, error) {
	var line model.BudgetLine
	if err := r.db.WithContext(ctx).First(&line, id).Error; err != nil {
		return nil, wrapDBError("查询预算明细失败", err)
	}
	return &line, nil
}

func (r *budgetLineRepository) ListByProject(ctx context.Context, projectID int64) ([]*model.BudgetLine, error) {
	var lines []*model.BudgetLine
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("category ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, wrapDBError("查询预算明细失败", err)
	}
	return lines, nil
}

func (r *budgetLineRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.BudgetLine{}, id)
	if result.Error != nil {
		return wrapDBError("删除预算明细失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

// TimeLogFilter 工时查询条件
// EmployerOrgID 只看该雇主, ExcludeEmployerOrgID 排除该雇主, 两者用于 internal/vendors 过滤
type TimeLogFilter struct {
	ProjectID            int64
	Statuses             []string
	UserID               *int64
	EmployerOrgID        *int64
	ExcludeEmployerOrgID *int64
	From                 *time.Time
	To                   *time.Time
}

// OrgTimeLogFilter 跨项目查询, 组织作为结算方或雇主的工时
type OrgTimeLogFilter struct {
	OrgID     int64
	ProjectID *int64
	Statuses  []string
	From      time.Time
	To        time.Time
}

type TimeLogRepository interface {
	Create(ctx context.Context, log *model.TimeLog) error
	FindByID(ctx context.Context, id int64) (*model.TimeLog, error)
	List(ctx context.Context, filter TimeLogFilter) ([]*model.TimeLog, error)
	// ListForOrg 结算方看到全部, 雇主只看到本组织员工的
	ListForOrg(ctx context.Context, filter OrgTimeLogFilter) ([]*model.TimeLog, error)
	UpdateStatus(ctx context.Context, id int64, status string, reviewer int64, at time.Time) error
	SumApprovedMinutes(ctx context.Context, projectID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type timeLogRepository struct {
	db *gorm.DB
}

func NewTimeLogRepository(db *gorm.DB) TimeLogRepository {
	return &timeLogRepository{db: db}
}

func (r *timeLogRepository) Create(ctx context.Context, log *model.TimeLog) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(log).Error; err != nil {
		return wrapDBError("创建工时记录失败", err)
	}
	return nil
}

func (r *timeLogRepository) FindByID(ctx context.Context, id int64) (*model.TimeLog, error) {
	var log model.TimeLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, wrapDBError("查询工时记录失败", err)
	}
	return &log, nil
}

func (r *timeLogRepository) List(ctx context.Context, filter TimeLogFilter) ([]*model.TimeLog, error) {
	var logs []*model.TimeLog
	query := r.db.WithContext(ctx).
		Preload("User").
		Preload("EmployerOrg").
		Where("project_id = ?", filter.ProjectID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EmployerOrgID != nil {
		query = query.Where("employer_org_id = ?", *filter.EmployerOrgID)
	}
	if filter.ExcludeEmployerOrgID != nil {
		query = query.Where("employer_org_id <> ?", *filter.ExcludeEmployerOrgID)
	}
	if filter.From != nil {
		query = query.Where("started_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("started_at <= ?", *filter.To)
	}
	if err := query.Order("started_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, wrapDBError("查询工时记录失败", err)
	}
	return logs, nil
}

func (r *timeLogRepository) ListForOrg(ctx context.Context, filter OrgTimeLogFilter) ([]*model.TimeLog, error) {
	var logs []*model.TimeLog
	query := r.db.WithContext(ctx).
		Preload("EmployerOrg").
		Preload("Project").
		Where("(bill_to_org_id = ? OR employer_org_id = ?)", filter.OrgID, filter.OrgID).
		Where("started_at >= ? AND started_at <= ?", filter.From, filter.To)
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if err := query.Order("project_id ASC, employer_org_id ASC").Find(&logs).Error; err != nil {
		return nil, wrapDBError("查询工时报表失败", err)
	}
	return logs, nil
}

func (r *timeLogRepository) UpdateStatus(ctx context.Context, id int64, status string, reviewer int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.TimeLog{}).
		Where("id = ? AND status = ?", id, constants.TimeLogStatusSubmitted).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewer,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return wrapDBError("审批工时记录失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrStaleReference
	}
	return nil
}

func (r *timeLogRepository) SumApprovedMinutes(ctx context.Context, projectID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.TimeLog{}).
		Select("COALESCE(SUM(minutes), 0)").
		Where("project_id = ? AND status = ?", projectID, constants.TimeLogStatusApproved).
		Scan(&total).Error
	if err != nil {
		return 0, wrapDBError("统计工时失败", err)
	}
	return total, nil
}

func (r *timeLogRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.TimeLog{}, id)
	if result.Error != nil {
		return wrapDBError("删除工时记录失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
