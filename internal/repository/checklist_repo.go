package repository

import (
	"context"

	"gorm.io/gorm"

	"buildbuddy-admin/internal/model"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type ChecklistRepository interface {
	// Create 同时写入 Items
	Create(ctx context.Context, checklist *model.Checklist) error
	Rename(ctx context.Context, id int64, title string) error
	FindByID(ctx context.Context, id int64, withItems bool) (*model.Checklist, error)
	ListByTask(ctx context.Context, taskID int64) ([]*model.Checklist, error)
	// LockForUpdate 锁住检查单行, 检查项排序在持锁期间计算
	LockForUpdate(ctx context.Context, id int64) error
	// Delete 级联删除检查项
	Delete(ctx context.Context, id int64) error
}

type checklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) ChecklistRepository {
	return &checklistRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC, id ASC")
}

func (r *checklistRepository) LockForUpdate(ctx context.Context, id int64) error {
	return lockRow(r.db.WithContext(ctx), &model.Checklist{}, id, "锁定检查单失败")
}

func (r *checklistRepository) Create(ctx context.Context, checklist *model.Checklist) error {
	if err := r.db.WithContext(ctx).Create(checklist).Error; err != nil {
		return wrapDBError("创建检查单失败", err)
	}
	return nil
}

func (r *checklistRepository) Rename(ctx context.Context, id int64, title string) error {
	result := r.db.WithContext(ctx).Model(&model.Checklist{}).Where("id = ?", id).Update("title", title)
	if result.Error != nil {
		return wrapDBError("更新检查单失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

func (r *checklistRepository) FindByID(ctx context.Context, id int64, withItems bool) (*model.Checklist, error) {
	var checklist model.Checklist
	db := r.db.WithContext(ctx)
	if withItems {
		db = db.Preload("Items", orderedItems)
	}
	if err := db.First(&checklist, id).Error; err != nil {
		return nil, wrapDBError("查询检查单失败", err)
	}
	return &checklist, nil
}

func (r *checklistRepository) ListByTask(ctx context.Context, taskID int64) ([]*model.Checklist, error) {
	var list []*model.Checklist
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBError("查询检查单失败", err)
	}
	return list, nil
}

func (r *checklistRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("checklist_id = ?", id).Delete(&model.ChecklistItem{}).Error; err != nil {
		return wrapDBError("删除检查项失败", err)
	}
	result := db.Delete(&model.Checklist{}, id)
	if result.Error != nil {
		return wrapDBError("删除检查单失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

type ChecklistItemRepository interface {
	Create(ctx context.Context, item *model.ChecklistItem) error
	Update(ctx context.Context, item *model.ChecklistItem) error
	FindByID(ctx context.Context, id int64) (*model.ChecklistItem, error)
	ListByChecklist(ctx context.Context, checklistID int64) ([]*model.ChecklistItem, error)
	UpdateSeq(ctx context.Context, id int64, seq int) error
	Delete(ctx context.Context, id int64) error
}

type checklistItemRepository struct {
	db *gorm.DB
}

func NewChecklistItemRepository(db *gorm.DB) ChecklistItemRepository {
	return &checklistItemRepository{db: db}
}

func (r *checklistItemRepository) Create(ctx context.Context, item *model.ChecklistItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return wrapDBError("创建检查项失败", err)
	}
	return nil
}

func (r *checklistItemRepository) Update(ctx context.Context, item *model.ChecklistItem) error {
	err := r.db.WithContext(ctx).Model(item).Select("text", "done").Updates(item).Error
	if err != nil {
		return wrapDBError("更新检查项失败", err)
	}
	return nil
}

func (r *checklistItemRepository) FindByID(ctx context.Context, id int64) (*model.ChecklistItem, error) {
	var item model.ChecklistItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, wrapDBError("查询检查项失败", err)
	}
	return &item, nil
}

func (r *checklistItemRepository) ListByChecklist(ctx context.Context, checklistID int64) ([]*model.ChecklistItem, error) {
	var items []*model.ChecklistItem
	err := orderedItems(r.db.WithContext(ctx)).
		Where("checklist_id = ?", checklistID).
		Find(&items).Error
	if err != nil {
		return nil, wrapDBError("查询检查项失败", err)
	}
	return items, nil
}

func (r *checklistItemRepository) UpdateSeq(ctx context.Context, id int64, seq int) error {
	return updateSeq(r.db.WithContext(ctx), &model.ChecklistItem{}, id, seq, "调整检查项顺序失败")
}

func (r *checklistItemRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.ChecklistItem{}, id)
	if result.Error != nil {
		return wrapDBError("删除检查项失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
