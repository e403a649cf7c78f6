package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

// LedgerHandler 预算与工时
type LedgerHandler struct {
	budgetService  service.BudgetService
	timeLogService service.TimeLogService
}

func NewLedgerHandler(budgetService service.BudgetService, timeLogService service.TimeLogService) *LedgerHandler {
	return &LedgerHandler{
		budgetService:  budgetService,
		timeLogService: timeLogService,
	}
}

// ListBudget 预算明细
// @Summary 预算明细
// @Tags 预算
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=[]dto.BudgetLineResponse}
// @Router /api/v1/projects/{id}/budget [get]
func (h *LedgerHandler) ListBudget(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	lines, err := h.budgetService.List(c.Request.Context(), projectID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, lines)
}

// BudgetSummary 预算汇总
// @Summary 计划金额与已审批工时汇总
// @Tags 预算
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=dto.BudgetSummaryResponse}
// @Router /api/v1/projects/{id}/budget/summary [get]
func (h *LedgerHandler) BudgetSummary(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	summary, err := h.budgetService.Summary(c.Request.Context(), projectID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, summary)
}

// CreateBudgetLine 新增预算明细
// @Summary 新增预算明细
// @Tags 预算
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.CreateBudgetLineRequest true "预算明细"
// @Success 200 {object} utils.Response{data=dto.BudgetLineResponse}
// @Router /api/v1/projects/{id}/budget [post]
func (h *LedgerHandler) CreateBudgetLine(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateBudgetLineRequest
	if !bindJSON(c, &req) {
		return
	}

	line, err := h.budgetService.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, line)
}

func (h *LedgerHandler) UpdateBudgetLine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBudgetLineRequest
	if !bindJSON(c, &req) {
		return
	}

	line, err := h.budgetService.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, line)
}

func (h *LedgerHandler) DeleteBudgetLine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.budgetService.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// ListTimeLogs 工时列表
// @Summary 工时列表及按公司汇总
// @Description 外包方只能看到自己组织的工时
// @Tags 工时
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param status query string false "状态, 逗号分隔"
// @Param company query string false "all / internal / vendors"
// @Param from query string false "开始日期"
// @Param to query string false "结束日期"
// @Success 200 {object} utils.Response{data=dto.TimeLogListResponse}
// @Router /api/v1/projects/{id}/time-logs [get]
func (h *LedgerHandler) ListTimeLogs(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var query dto.TimeLogListQuery
	if !bindQuery(c, &query) {
		return
	}

	resp, err := h.timeLogService.List(c.Request.Context(), projectID, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// CreateTimeLog 提交工时
// @Summary 提交工时
// @Tags 工时
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.CreateTimeLogRequest true "工时"
// @Success 200 {object} utils.Response{data=dto.TimeLogResponse}
// @Router /api/v1/projects/{id}/time-logs [post]
func (h *LedgerHandler) CreateTimeLog(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateTimeLogRequest
	if !bindJSON(c, &req) {
		return
	}

	log, err := h.timeLogService.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, log)
}

// ReviewTimeLog 审批工时
// @Summary 审批工时
// @Description 由结算组织的管理员或经理审批
// @Tags 工时
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "工时ID"
// @Param request body dto.ReviewTimeLogRequest true "审批结果"
// @Success 200 {object} utils.Response{data=dto.TimeLogResponse}
// @Router /api/v1/time-logs/{id}/review [post]
func (h *LedgerHandler) ReviewTimeLog(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewTimeLogRequest
	if !bindJSON(c, &req) {
		return
	}

	log, err := h.timeLogService.Review(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, log)
}

// DeleteTimeLog 删除本人未审批的工时
func (h *LedgerHandler) DeleteTimeLog(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.timeLogService.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// HoursReport 组织工时报表
// @Summary 跨项目工时报表
// @Description 按雇主组织和项目汇总, format=csv 时导出 CSV
// @Tags 工时
// @Produce json,text/csv
// @Security ApiKeyAuth
// @Param from query string true "开始日期"
// @Param to query string true "结束日期"
// @Param project_id query int false "项目ID"
// @Param status query string false "状态, 逗号分隔"
// @Param format query string false "json / csv"
// @Success 200 {object} utils.Response{data=dto.HoursReportResponse}
// @Router /api/v1/time-logs/report [get]
func (h *LedgerHandler) HoursReport(c *gin.Context) {
	var query dto.HoursReportQuery
	if !bindQuery(c, &query) {
		return
	}

	report, err := h.timeLogService.Report(c.Request.Context(), &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	if c.Query("format") == "csv" {
		writeReportCSV(c, report)
		return
	}
	utils.Success(c, report)
}

func writeReportCSV(c *gin.Context, report *dto.HoursReportResponse) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="hours.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"company", "project", "minutes", "hours"})
	for _, r := range report.Rows {
		_ = w.Write([]string{
			lo.Ternary(r.EmployerName != "", r.EmployerName, strconv.FormatInt(r.EmployerOrgID, 10)),
			lo.Ternary(r.ProjectName != "", r.ProjectName, strconv.FormatInt(r.ProjectID, 10)),
			strconv.Itoa(r.Minutes),
			strconv.FormatFloat(r.Hours, 'f', 2, 64),
		})
	}
	w.Flush()
}
