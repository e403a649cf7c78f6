package model

import "time"

const (
	ProjectTableName            = "projects"
	ProjectParticipantTableName = "project_participants"
	ProjectAssignmentTableName  = "project_assignments"
	ProjectInviteTableName      = "project_invites"
)

// Project 项目, 归属唯一的组织
type Project struct {
	BaseModel
	OrgID  int64    `gorm:"column:org_id;not null;index" json:"org_id"`
	Name   string   `gorm:"size:200;not null" json:"name"`
	Status string   `gorm:"size:20;not null;default:planning" json:"status"`
	Budget *float64 `gorm:"type:decimal(14,2)" json:"budget,omitempty"`

	Organization *Organization `gorm:"foreignKey:OrgID" json:"organization,omitempty"`
}

func (Project) TableName() string {
	return ProjectTableName
}

// ProjectParticipant 参与项目的组织, owner 或 vendor
type ProjectParticipant struct {
	BaseModel
	ProjectID int64  `gorm:"column:project_id;not null;uniqueIndex:idx_project_participant" json:"project_id"`
	OrgID     int64  `gorm:"column:org_id;not null;uniqueIndex:idx_project_participant;index" json:"org_id"`
	Role      string `gorm:"size:20;not null" json:"role"`

	Organization *Organization `gorm:"foreignKey:OrgID" json:"organization,omitempty"`
}

func (ProjectParticipant) TableName() string {
	return ProjectParticipantTableName
}

// ProjectAssignment 某个工人在项目上的派工, 归属其雇主组织
type ProjectAssignment struct {
	BaseModel
	ProjectID     int64      `gorm:"column:project_id;not null;uniqueIndex:idx_project_assignment" json:"project_id"`
	UserID        int64      `gorm:"column:user_id;not null;uniqueIndex:idx_project_assignment;index" json:"user_id"`
	EmployerOrgID int64      `gorm:"column:employer_org_id;not null;index" json:"employer_org_id"`
	Role          string     `gorm:"size:30;not null" json:"role"`
	IsExternal    bool       `gorm:"not null;default:false" json:"is_external"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`

	User        *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	EmployerOrg *Organization `gorm:"foreignKey:EmployerOrgID" json:"employer_org,omitempty"`
}

func (ProjectAssignment) TableName() string {
	return ProjectAssignmentTableName
}

// ProjectInvite 项目邀请
// accepted_at 为空且 expires_at 在未来时为待接受状态
type ProjectInvite struct {
	BaseModel
	ProjectID     int64      `gorm:"column:project_id;not null;index" json:"project_id"`
	EmployerOrgID int64      `gorm:"column:employer_org_id;not null" json:"employer_org_id"`
	Email         string     `gorm:"size:100;not null;index" json:"email"`
	Role          string     `gorm:"size:30;not null" json:"role"`
	Token         string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expires_at"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	CreatedBy     int64      `gorm:"not null" json:"created_by"`

	Project     *Project      `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	EmployerOrg *Organization `gorm:"foreignKey:EmployerOrgID" json:"employer_org,omitempty"`
}

func (ProjectInvite) TableName() string {
	return ProjectInviteTableName
}

// IsPending 未接受且未过期
func (i *ProjectInvite) IsPending(now time.Time) bool {
	return i.AcceptedAt == nil && i.ExpiresAt.After(now)
}

// IsExpired 是否已过期
func (i *ProjectInvite) IsExpired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
