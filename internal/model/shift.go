package model

import "time"

const ShiftTableName = "shifts"

// Shift 排班, 属于组织, 可以关联一个项目
type Shift struct {
	BaseModel
	OrgID     int64     `gorm:"column:org_id;not null;index:idx_shift_org_start" json:"org_id"`
	UserID    int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	ProjectID *int64    `gorm:"column:project_id;index" json:"project_id,omitempty"`
	StartAt   time.Time `gorm:"not null;index:idx_shift_org_start" json:"start_at"`
	EndAt     time.Time `gorm:"not null" json:"end_at"`
	CreatedBy int64     `gorm:"not null" json:"created_by"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (Shift) TableName() string {
	return ShiftTableName
}
