package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildbuddy-admin/internal/model"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type InviteRepository interface {
	Create(ctx context.Context, invite *model.ProjectInvite) error
	FindByID(ctx context.Context, id int64, forUpdate bool) (*model.ProjectInvite, error)
	FindByToken(ctx context.Context, token string, forUpdate bool) (*model.ProjectInvite, error)
	FindPending(ctx context.Context, projectID int64, email string, now time.Time) (*model.ProjectInvite, error)
	ListPendingByProject(ctx context.Context, projectID int64, now time.Time) ([]*model.ProjectInvite, error)
	ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]*model.ProjectInvite, error)
	ListExpiredBetween(ctx context.Context, from, to time.Time) ([]*model.ProjectInvite, error)
	// MarkAccepted 仅在 accepted_at 为空时生效, 返回是否更新了记录
	MarkAccepted(ctx context.Context, id int64, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *inviteRepository) Create(ctx context.Context, invite *model.ProjectInvite) error {
	invite.Email = normalizeEmail(invite.Email)
	if err := r.db.WithContext(ctx).Create(invite).Error; err != nil {
		return wrapDBError("创建邀请失败", err)
	}
	return nil
}

func (r *inviteRepository) lock(ctx context.Context, forUpdate bool) *gorm.DB {
	db := r.db.WithContext(ctx)
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *inviteRepository) FindByID(ctx context.Context, id int64, forUpdate bool) (*model.ProjectInvite, error) {
	var invite model.ProjectInvite
	if err := r.lock(ctx, forUpdate).First(&invite, id).Error; err != nil {
		return nil, wrapDBError("查询邀请失败", err)
	}
	return &invite, nil
}

func (r *inviteRepository) FindByToken(ctx context.Context, token string, forUpdate bool) (*model.ProjectInvite, error) {
	var invite model.ProjectInvite
	if err := r.lock(ctx, forUpdate).Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, wrapDBError("查询邀请失败", err)
	}
	return &invite, nil
}

func (r *inviteRepository) pending(ctx context.Context, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at > ?", now)
}

func (r *inviteRepository) FindPending(ctx context.Context, projectID int64, email string, now time.Time) (*model.ProjectInvite, error) {
	var invite model.ProjectInvite
	err := r.pending(ctx, now).
		Where("project_id = ? AND email = ?", projectID, normalizeEmail(email)).
		First(&invite).Error
	if err != nil {
		return nil, wrapDBError("查询邀请失败", err)
	}
	return &invite, nil
}

func (r *inviteRepository) ListPendingByProject(ctx context.Context, projectID int64, now time.Time) ([]*model.ProjectInvite, error) {
	var list []*model.ProjectInvite
	err := r.pending(ctx, now).
		Preload("EmployerOrg").
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBError("查询邀请列表失败", err)
	}
	return list, nil
}

func (r *inviteRepository) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]*model.ProjectInvite, error) {
	var list []*model.ProjectInvite
	err := r.pending(ctx, now).
		Preload("Project").
		Preload("EmployerOrg").
		Where("email = ?", normalizeEmail(email)).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBError("查询邀请列表失败", err)
	}
	return list, nil
}

func (r *inviteRepository) ListExpiredBetween(ctx context.Context, from, to time.Time) ([]*model.ProjectInvite, error) {
	var list []*model.ProjectInvite
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("EmployerOrg").
		Where("accepted_at IS NULL AND expires_at > ? AND expires_at <= ?", from, to).
		Order("expires_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBError("查询过期邀请失败", err)
	}
	return list, nil
}

func (r *inviteRepository) MarkAccepted(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.ProjectInvite{}).
		Where("id = ? AND accepted_at IS NULL", id).
		Update("accepted_at", at)
	if result.Error != nil {
		return false, wrapDBError("接受邀请失败", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *inviteRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.ProjectInvite{}, id)
	if result.Error != nil {
		return wrapDBError("撤销邀请失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
