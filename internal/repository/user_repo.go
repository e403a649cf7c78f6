package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"buildbuddy-admin/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username, provider string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Search(ctx context.Context, keyword string, limit int) ([]*model.User, error)
	UpdateLastLogin(ctx context.Context, id int64) error
	UpdateActiveOrg(ctx context.Context, id int64, orgID *int64) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapDBError("创建用户失败", err)
	}
	return nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username, provider string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND auth_provider = ?", username, provider).
		First(&user).Error
	if err != nil {
		return nil, wrapDBError("查询用户失败", err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("id ASC").
		First(&user).Error
	if err != nil {
		return nil, wrapDBError("查询用户失败", err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrapDBError("查询用户失败", err)
	}
	return &user, nil
}

func (r *userRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.User, error) {
	var users []*model.User
	query := r.db.WithContext(ctx).Model(&model.User{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("username LIKE ? OR display_name LIKE ? OR email LIKE ?", like, like, like)
	}
	if err := query.Order("username ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, wrapDBError("搜索用户失败", err)
	}
	return users, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("last_login_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
		return wrapDBError("更新登录时间失败", err)
	}
	return nil
}

func (r *userRepository) UpdateActiveOrg(ctx context.Context, id int64, orgID *int64) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("active_org_id", orgID).Error; err != nil {
		return wrapDBError("保存组织选择失败", err)
	}
	return nil
}
