package dto

// CreateProjectRequest 创建项目, 归属当前生效组织
type CreateProjectRequest struct {
	Name   string   `json:"name" binding:"required,max=200"`
	Status string   `json:"status" binding:"omitempty,oneof=planning active on_hold completed"`
	Budget *float64 `json:"budget" binding:"omitempty,gte=0"`
}

// UpdateProjectRequest 更新项目
type UpdateProjectRequest struct {
	Name   *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Status *string  `json:"status" binding:"omitempty,oneof=planning active on_hold completed"`
	Budget *float64 `json:"budget" binding:"omitempty,gte=0"`
}

// ProjectListQuery 项目列表
type ProjectListQuery struct {
	Keyword string `form:"keyword"`
}

// ProjectResponse 项目
type ProjectResponse struct {
	ID        int64    `json:"id"`
	OrgID     int64    `json:"org_id"`
	OrgName   string   `json:"org_name,omitempty"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Budget    *float64 `json:"budget,omitempty"`
	IsOwner   bool     `json:"is_owner"` // 当前生效组织是否为项目所属组织
	CreatedAt string   `json:"created_at"`
}

// AddVendorRequest 添加外包方, 传 org_id 选择已有组织或传 name 新建
type AddVendorRequest struct {
	OrgID *int64 `json:"org_id" binding:"omitempty,min=1"`
	Name  string `json:"name" binding:"required_without=OrgID,max=200"`
}

// ParticipantResponse 项目参与方
type ParticipantResponse struct {
	OrgID     int64  `json:"org_id"`
	OrgName   string `json:"org_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// AssignmentListQuery 派工列表
type AssignmentListQuery struct {
	Company string `form:"company" binding:"omitempty,oneof=all internal vendors"`
}

// AssignmentResponse 派工
type AssignmentResponse struct {
	ID            int64   `json:"id"`
	ProjectID     int64   `json:"project_id"`
	UserID        int64   `json:"user_id"`
	UserName      string  `json:"user_name"`
	Email         *string `json:"email,omitempty"`
	EmployerOrgID int64   `json:"employer_org_id"`
	EmployerName  string  `json:"employer_name"`
	Role          string  `json:"role"`
	IsExternal    bool    `json:"is_external"`
	Company       string  `json:"company"` // internal or vendor
	AcceptedAt    *string `json:"accepted_at,omitempty"`
}
