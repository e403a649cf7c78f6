package dto

// CreateInviteRequest 发出项目邀请
type CreateInviteRequest struct {
	Email         string `json:"email" binding:"required,email,max=100"`
	EmployerOrgID int64  `json:"employer_org_id" binding:"required,min=1"`
	Role          string `json:"role" binding:"omitempty,max=30"`
}

// AcceptInviteRequest 接受邀请, token 与 invite_id 二选一
type AcceptInviteRequest struct {
	Token    string `json:"token" binding:"required_without=InviteID"`
	InviteID int64  `json:"invite_id" binding:"omitempty,min=1"`
}

// InviteResponse 邀请
type InviteResponse struct {
	ID            int64   `json:"id"`
	ProjectID     int64   `json:"project_id"`
	ProjectName   string  `json:"project_name,omitempty"`
	EmployerOrgID int64   `json:"employer_org_id"`
	EmployerName  string  `json:"employer_name,omitempty"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	ExpiresAt     string  `json:"expires_at"`
	AcceptedAt    *string `json:"accepted_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	Link          string  `json:"link,omitempty"` // 仅创建时返回
}

// AcceptInviteResponse 接受结果
type AcceptInviteResponse struct {
	ProjectID  int64               `json:"project_id"`
	Assignment *AssignmentResponse `json:"assignment"`
}
