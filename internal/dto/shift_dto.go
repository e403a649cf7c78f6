package dto

// CreateShiftRequest 新建排班, user_id 为空表示给自己排班
type CreateShiftRequest struct {
	UserID    *int64 `json:"user_id" binding:"omitempty,min=1"`
	ProjectID *int64 `json:"project_id" binding:"omitempty,min=1"`
	StartAt   string `json:"start_at" binding:"required"`
	EndAt     string `json:"end_at" binding:"required"`
}

// ShiftListQuery 排班过滤, from/to 作用于开始时间
type ShiftListQuery struct {
	DateFrom  string `form:"from"`
	DateTo    string `form:"to"`
	UserID    *int64 `form:"user_id" binding:"omitempty,min=1"`
	ProjectID *int64 `form:"project_id" binding:"omitempty,min=1"`
}

// ShiftResponse 排班
type ShiftResponse struct {
	ID          int64  `json:"id"`
	OrgID       int64  `json:"org_id"`
	UserID      int64  `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	ProjectID   *int64 `json:"project_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	Minutes     int    `json:"minutes"`
}
