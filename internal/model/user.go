package model

import "time"

const UserTableName = "users"

// User 本地/LDAP用户
type User struct {
	BaseStatus
	AuthProvider string     `gorm:"size:20;not null;default:local;uniqueIndex:idx_user_provider_name" json:"auth_provider"`
	Username     string     `gorm:"size:50;not null;uniqueIndex:idx_user_provider_name" json:"username"`
	Password     string     `gorm:"size:255" json:"-"` // 不返回到前端；LDAP 用户可为空字符串
	ExternalUID  *string    `gorm:"size:191" json:"external_uid,omitempty"`
	Email        *string    `gorm:"size:100;index" json:"email,omitempty"`
	DisplayName  *string    `gorm:"size:100" json:"display_name,omitempty"`
	Phone        *string    `gorm:"size:32" json:"phone,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	ActiveOrgID  *int64     `gorm:"column:active_org_id" json:"active_org_id,omitempty"` // 上次选择的组织, 仅作参考
}

// TableName 指定表名
func (User) TableName() string {
	return UserTableName
}

// Name 显示名, 未设置时使用用户名
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

// EmailValue 邮箱, 未设置时为空串
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
