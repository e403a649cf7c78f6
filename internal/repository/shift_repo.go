package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildbuddy-admin/internal/model"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// ShiftFilter 排班查询条件, 时间范围作用于 start_at
type ShiftFilter struct {
	OrgID     int64
	UserID    *int64
	ProjectID *int64
	From      *time.Time
	To        *time.Time
}

type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	FindByID(ctx context.Context, id int64) (*model.Shift, error)
	List(ctx context.Context, filter ShiftFilter) ([]*model.Shift, error)
	Delete(ctx context.Context, id int64) error
}

type shiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(shift).Error; err != nil {
		return wrapDBError("创建排班失败", err)
	}
	return nil
}

func (r *shiftRepository) FindByID(ctx context.Context, id int64) (*model.Shift, error) {
	var shift model.Shift
	if err := r.db.WithContext(ctx).First(&shift, id).Error; err != nil {
		return nil, wrapDBError("查询排班失败", err)
	}
	return &shift, nil
}

func (r *shiftRepository) List(ctx context.Context, filter ShiftFilter) ([]*model.Shift, error) {
	var shifts []*model.Shift
	query := r.db.WithContext(ctx).
		Preload("User").
		Preload("Project").
		Where("org_id = ?", filter.OrgID)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.From != nil {
		query = query.Where("start_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("start_at <= ?", *filter.To)
	}
	if err := query.Order("start_at ASC, id ASC").Find(&shifts).Error; err != nil {
		return nil, wrapDBError("查询排班列表失败", err)
	}
	return shifts, nil
}

func (r *shiftRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Shift{}, id)
	if result.Error != nil {
		return wrapDBError("删除排班失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
