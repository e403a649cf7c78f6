package repository

import (
	"context"

	"gorm.io/gorm"

	"buildbuddy-admin/internal/model"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	Update(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id int64) (*model.Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*model.Organization, error)
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		return wrapDBError("创建组织失败", err)
	}
	return nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	if err := r.db.WithContext(ctx).Save(org).Error; err != nil {
		return wrapDBError("更新组织失败", err)
	}
	return nil
}

func (r *organizationRepository) FindByID(ctx context.Context, id int64) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, wrapDBError("查询组织失败", err)
	}
	return &org, nil
}

func (r *organizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Organization{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, wrapDBError("查询组织失败", err)
	}
	return count > 0, nil
}

func (r *organizationRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Organization, error) {
	var orgs []*model.Organization
	if len(ids) == 0 {
		return orgs, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, wrapDBError("查询组织失败", err)
	}
	return orgs, nil
}

type MemberRepository interface {
	Create(ctx context.Context, member *model.OrganizationMember) error
	Find(ctx context.Context, orgID, userID int64) (*model.OrganizationMember, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.OrganizationMember, error)
	ListByOrg(ctx context.Context, orgID int64) ([]*model.OrganizationMember, error)
	CountByRole(ctx context.Context, orgID int64, role string) (int64, error)
	UpdateRole(ctx context.Context, orgID, userID int64, role string) error
	Delete(ctx context.Context, orgID, userID int64) error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *model.OrganizationMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return wrapDBError("添加组织成员失败", err)
	}
	return nil
}

func (r *memberRepository) Find(ctx context.Context, orgID, userID int64) (*model.OrganizationMember, error) {
	var member model.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err != nil {
		return nil, wrapDBError("查询组织成员失败", err)
	}
	return &member, nil
}

// ListByUser 按加入时间升序
func (r *memberRepository) ListByUser(ctx context.Context, userID int64) ([]*model.OrganizationMember, error) {
	var members []*model.OrganizationMember
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, wrapDBError("查询组织成员关系失败", err)
	}
	return members, nil
}

func (r *memberRepository) ListByOrg(ctx context.Context, orgID int64) ([]*model.OrganizationMember, error) {
	var members []*model.OrganizationMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("org_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, wrapDBError("查询组织成员失败", err)
	}
	return members, nil
}

func (r *memberRepository) CountByRole(ctx context.Context, orgID int64, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrganizationMember{}).
		Where("org_id = ? AND role = ?", orgID, role).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBError("统计组织成员失败", err)
	}
	return count, nil
}

func (r *memberRepository) UpdateRole(ctx context.Context, orgID, userID int64, role string) error {
	result := r.db.WithContext(ctx).Model(&model.OrganizationMember{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", role)
	if result.Error != nil {
		return wrapDBError("更新成员角色失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, orgID, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Delete(&model.OrganizationMember{})
	if result.Error != nil {
		return wrapDBError("移除组织成员失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}
