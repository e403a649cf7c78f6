package dto

// CreateBudgetLineRequest 新建预算明细
type CreateBudgetLineRequest struct {
	Category      string   `json:"category" binding:"required,max=50"`
	Name          string   `json:"name" binding:"required,max=200"`
	PlannedAmount *float64 `json:"planned_amount" binding:"omitempty,gte=0"`
	Currency      string   `json:"currency" binding:"omitempty,len=3"`
}

// UpdateBudgetLineRequest 更新预算明细
type UpdateBudgetLineRequest struct {
	Category      *string  `json:"category" binding:"omitempty,min=1,max=50"`
	Name          *string  `json:"name" binding:"omitempty,min=1,max=200"`
	PlannedAmount *float64 `json:"planned_amount" binding:"omitempty,gte=0"`
	Currency      *string  `json:"currency" binding:"omitempty,len=3"`
}

// BudgetLineResponse 预算明细
type BudgetLineResponse struct {
	ID            int64    `json:"id"`
	ProjectID     int64    `json:"project_id"`
	Category      string   `json:"category"`
	Name          string   `json:"name"`
	PlannedAmount *float64 `json:"planned_amount,omitempty"`
	Currency      string   `json:"currency"`
}

// BudgetSummaryResponse 预算汇总
type BudgetSummaryResponse struct {
	PlannedTotal  float64  `json:"planned_total"`
	Currency      string   `json:"currency"`
	ActualHours   float64  `json:"actual_hours"` // 已审批工时
	ProjectBudget *float64 `json:"project_budget,omitempty"`
}

// CreateTimeLogRequest 记录工时
type CreateTimeLogRequest struct {
	StartedAt string  `json:"started_at" binding:"required"`
	EndedAt   string  `json:"ended_at"`
	Minutes   *int    `json:"minutes" binding:"omitempty,min=0"`
	Note      *string `json:"note" binding:"omitempty,max=2000"`
}

// TimeLogListQuery 工时过滤, status 为逗号分隔
type TimeLogListQuery struct {
	Status   string `form:"status"`
	Company  string `form:"company" binding:"omitempty,oneof=all internal vendors"`
	DateFrom string `form:"from"`
	DateTo   string `form:"to"`
	UserID   *int64 `form:"worker" binding:"omitempty,min=1"`
}

// ReviewTimeLogRequest 审批
type ReviewTimeLogRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// TimeLogResponse 工时记录
type TimeLogResponse struct {
	ID            int64   `json:"id"`
	ProjectID     int64   `json:"project_id"`
	UserID        int64   `json:"user_id"`
	UserName      string  `json:"user_name,omitempty"`
	EmployerOrgID int64   `json:"employer_org_id"`
	EmployerName  string  `json:"employer_name,omitempty"`
	BillToOrgID   int64   `json:"bill_to_org_id"`
	Company       string  `json:"company"`
	StartedAt     string  `json:"started_at"`
	EndedAt       *string `json:"ended_at,omitempty"`
	Minutes       int     `json:"minutes"`
	Status        string  `json:"status"`
	Note          *string `json:"note,omitempty"`
}

// CompanyTotal 按雇主组织汇总的分钟数
type CompanyTotal struct {
	EmployerOrgID int64  `json:"employer_org_id"`
	EmployerName  string `json:"employer_name,omitempty"`
	Company       string `json:"company"`
	Minutes       int    `json:"minutes"`
}

// TimeLogListResponse 工时列表及汇总
type TimeLogListResponse struct {
	Items  []*TimeLogResponse `json:"items"`
	Totals []*CompanyTotal    `json:"totals"`
}

// HoursReportQuery 组织工时报表, from/to 必填
type HoursReportQuery struct {
	DateFrom  string `form:"from" binding:"required"`
	DateTo    string `form:"to" binding:"required"`
	ProjectID *int64 `form:"project_id" binding:"omitempty,min=1"`
	Status    string `form:"status"`
}

// HoursReportRow 雇主组织 x 项目的工时合计
type HoursReportRow struct {
	EmployerOrgID int64   `json:"employer_org_id"`
	EmployerName  string  `json:"employer_name,omitempty"`
	ProjectID     int64   `json:"project_id"`
	ProjectName   string  `json:"project_name,omitempty"`
	Company       string  `json:"company"`
	Minutes       int     `json:"minutes"`
	Hours         float64 `json:"hours"`
}

// HoursReportResponse 工时报表
type HoursReportResponse struct {
	From         string            `json:"from"`
	To           string            `json:"to"`
	Rows         []*HoursReportRow `json:"rows"`
	TotalMinutes int               `json:"total_minutes"`
}
