package dto

// CreatePhaseRequest 新建阶段, 追加到末尾
type CreatePhaseRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	StartDate string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// UpdatePhaseRequest 更新阶段
type UpdatePhaseRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=200"`
	StartDate *string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// PhaseResponse 阶段
type PhaseResponse struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	Name      string  `json:"name"`
	Seq       int     `json:"seq"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// TaskListQuery 任务列表, phase_id=0 表示未分配阶段
type TaskListQuery struct {
	PhaseID    *int64 `form:"phase_id" binding:"omitempty,min=0"`
	AssigneeID *int64 `form:"assignee_id" binding:"omitempty,min=1"`
	Status     string `form:"status" binding:"omitempty,oneof=todo in_progress done"`
}

// CreateTaskRequest 新建任务
type CreateTaskRequest struct {
	Title        string   `json:"title" binding:"required,max=300"`
	PhaseID      *int64   `json:"phase_id" binding:"omitempty,min=1"`
	Status       string   `json:"status" binding:"omitempty,oneof=todo in_progress done"`
	AssigneeID   *int64   `json:"assignee_id" binding:"omitempty,min=1"`
	DueDate      string   `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	PlannedHours *float64 `json:"planned_hours" binding:"omitempty,gte=0"`
}

// UpdateTaskRequest 更新任务, clear_* 用于清空可选字段
type UpdateTaskRequest struct {
	Title         *string  `json:"title" binding:"omitempty,min=1,max=300"`
	Status        *string  `json:"status" binding:"omitempty,oneof=todo in_progress done"`
	AssigneeID    *int64   `json:"assignee_id" binding:"omitempty,min=1"`
	ClearAssignee bool     `json:"clear_assignee"`
	DueDate       *string  `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	ClearDueDate  bool     `json:"clear_due_date"`
	PlannedHours  *float64 `json:"planned_hours" binding:"omitempty,gte=0"`
}

// ChangeTaskPhaseRequest 移动到其他阶段, phase_id 为空表示移出到未分配
type ChangeTaskPhaseRequest struct {
	PhaseID *int64 `json:"phase_id" binding:"omitempty,min=1"`
}

// TaskResponse 任务
type TaskResponse struct {
	ID           int64    `json:"id"`
	ProjectID    int64    `json:"project_id"`
	PhaseID      *int64   `json:"phase_id"`
	Seq          int      `json:"seq"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	AssigneeID   *int64   `json:"assignee_id,omitempty"`
	AssigneeName string   `json:"assignee_name,omitempty"`
	DueDate      *string  `json:"due_date,omitempty"`
	PlannedHours *float64 `json:"planned_hours,omitempty"`
}
