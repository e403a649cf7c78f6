package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProjectPhaseTableName  = "project_phases"
	TaskTableName          = "tasks"
	ChecklistTableName     = "checklists"
	ChecklistItemTableName = "checklist_items"
	BudgetLineTableName    = "budget_lines"
	TimeLogTableName       = "time_logs"
)

// ProjectPhase 项目阶段, 同一项目内 seq 唯一
type ProjectPhase struct {
	BaseModel
	ProjectID int64           `gorm:"column:project_id;not null;uniqueIndex:idx_phase_seq" json:"project_id"`
	OrgID     int64           `gorm:"column:org_id;not null" json:"org_id"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	Seq       int             `gorm:"not null;uniqueIndex:idx_phase_seq" json:"seq"`
	StartDate *datatypes.Date `json:"start_date,omitempty"`
	EndDate   *datatypes.Date `json:"end_date,omitempty"`
}

func (ProjectPhase) TableName() string {
	return ProjectPhaseTableName
}

// Task 任务, 排序范围为 (project_id, phase_id), phase_id 为空表示未分配
// 唯一索引不约束 phase_id 为空的行, 未分配任务的排序依赖项目行锁阶段
type Task struct {
	BaseModel
	ProjectID    int64           `gorm:"column:project_id;not null;uniqueIndex:idx_task_scope" json:"project_id"`
	OrgID        int64           `gorm:"column:org_id;not null" json:"org_id"`
	PhaseID      *int64          `gorm:"column:phase_id;uniqueIndex:idx_task_scope" json:"phase_id"`
	Seq          int             `gorm:"not null;uniqueIndex:idx_task_scope" json:"seq"`
	Title        string          `gorm:"size:300;not null" json:"title"`
	Status       string          `gorm:"size:20;not null;default:todo" json:"status"`
	AssigneeID   *int64          `gorm:"column:assignee_id;index" json:"assignee_id,omitempty"`
	DueDate      *datatypes.Date `json:"due_date,omitempty"`
	PlannedHours *float64        `gorm:"type:decimal(8,2)" json:"planned_hours,omitempty"`

	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

func (Task) TableName() string {
	return TaskTableName
}

// Checklist 任务下的检查单
type Checklist struct {
	BaseModel
	TaskID    int64  `gorm:"column:task_id;not null;index" json:"task_id"`
	ProjectID int64  `gorm:"column:project_id;not null;index" json:"project_id"`
	Title     string `gorm:"size:200;not null" json:"title"`

	Items []*ChecklistItem `gorm:"foreignKey:ChecklistID" json:"items,omitempty"`
}

func (Checklist) TableName() string {
	return ChecklistTableName
}

// ChecklistItem 检查项
type ChecklistItem struct {
	BaseModel
	ChecklistID int64  `gorm:"column:checklist_id;not null;uniqueIndex:idx_item_seq" json:"checklist_id"`
	Text        string `gorm:"size:500;not null" json:"text"`
	Done        bool   `gorm:"not null;default:false" json:"done"`
	Seq         int    `gorm:"not null;uniqueIndex:idx_item_seq" json:"seq"`
}

func (ChecklistItem) TableName() string {
	return ChecklistItemTableName
}

// BudgetLine 预算明细
type BudgetLine struct {
	BaseModel
	ProjectID     int64    `gorm:"column:project_id;not null;index" json:"project_id"`
	OrgID         int64    `gorm:"column:org_id;not null" json:"org_id"`
	Category      string   `gorm:"size:50;not null" json:"category"`
	Name          string   `gorm:"size:200;not null" json:"name"`
	PlannedAmount *float64 `gorm:"type:decimal(14,2)" json:"planned_amount,omitempty"`
	Currency      string   `gorm:"size:3;not null;default:EUR" json:"currency"`
}

func (BudgetLine) TableName() string {
	return BudgetLineTableName
}

// TimeLog 工时记录, 仅 bill_to_org 的成员可以审批
type TimeLog struct {
	BaseModel
	ProjectID     int64      `gorm:"column:project_id;not null;index" json:"project_id"`
	UserID        int64      `gorm:"column:user_id;not null;index" json:"user_id"`
	EmployerOrgID int64      `gorm:"column:employer_org_id;not null;index" json:"employer_org_id"`
	BillToOrgID   int64      `gorm:"column:bill_to_org_id;not null;index" json:"bill_to_org_id"`
	StartedAt     time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Minutes       int        `gorm:"not null;default:0" json:"minutes"`
	Status        string     `gorm:"size:20;not null;default:submitted;index" json:"status"`
	Note          *string    `gorm:"type:text" json:"note,omitempty"`
	ReviewedBy    *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	User        *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	EmployerOrg *Organization `gorm:"foreignKey:EmployerOrgID" json:"employer_org,omitempty"`
	Project     *Project      `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (TimeLog) TableName() string {
	return TimeLogTableName
}
