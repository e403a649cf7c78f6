package model

const (
	OrganizationTableName       = "organizations"
	OrganizationMemberTableName = "organization_members"
)

// Organization 组织(租户)
type Organization struct {
	BaseModel
	Name          string  `gorm:"size:200;not null" json:"name"`
	Slug          string  `gorm:"size:220;not null;uniqueIndex" json:"slug"`
	CreatedBy     int64   `gorm:"not null;index" json:"created_by"`
	WhatsappPhone *string `gorm:"size:32" json:"whatsapp_phone,omitempty"`
}

func (Organization) TableName() string {
	return OrganizationTableName
}

// OrganizationMember 组织成员, (org_id, user_id) 唯一
type OrganizationMember struct {
	BaseModel
	OrgID  int64  `gorm:"column:org_id;not null;uniqueIndex:idx_org_member" json:"org_id"`
	UserID int64  `gorm:"column:user_id;not null;uniqueIndex:idx_org_member;index" json:"user_id"`
	Role   string `gorm:"size:20;not null" json:"role"` // org_admin, manager, worker

	// Relations
	Organization *Organization `gorm:"foreignKey:OrgID" json:"organization,omitempty"`
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (OrganizationMember) TableName() string {
	return OrganizationMemberTableName
}
