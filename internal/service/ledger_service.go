package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// BudgetService 预算明细与汇总, 只对项目所属组织开放
type BudgetService interface {
	List(ctx context.Context, projectID int64) ([]*dto.BudgetLineResponse, error)
	Summary(ctx context.Context, projectID int64) (*dto.BudgetSummaryResponse, error)
	Create(ctx context.Context, projectID int64, req *dto.CreateBudgetLineRequest) (*dto.BudgetLineResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateBudgetLineRequest) (*dto.BudgetLineResponse, error)
	Delete(ctx context.Context, id int64) error
}

type budgetService struct {
	*Deps
}

func NewBudgetService(deps *Deps) BudgetService {
	return &budgetService{Deps: deps}
}

func (s *budgetService) List(ctx context.Context, projectID int64) ([]*dto.BudgetLineResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermBudgetView); err != nil {
		return nil, err
	}
	lines, err := s.Store.BudgetLines().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return lo.Map(lines, func(l *model.BudgetLine, _ int) *dto.BudgetLineResponse {
		return toBudgetLineResponse(l)
	}), nil
}

func (s *budgetService) Summary(ctx context.Context, projectID int64) (*dto.BudgetSummaryResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermBudgetView); err != nil {
		return nil, err
	}
	lines, err := s.Store.BudgetLines().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	minutes, err := s.Store.TimeLogs().SumApprovedMinutes(ctx, projectID)
	if err != nil {
		return nil, err
	}

	currency := constants.DefaultCurrency
	if len(lines) > 0 && lines[0].Currency != "" {
		currency = lines[0].Currency
	}
	return &dto.BudgetSummaryResponse{
		PlannedTotal: lo.SumBy(lines, func(l *model.BudgetLine) float64 {
			return lo.FromPtr(l.PlannedAmount)
		}),
		Currency:      currency,
		ActualHours:   float64(minutes) / 60,
		ProjectBudget: access.project.Budget,
	}, nil
}

func (s *budgetService) Create(ctx context.Context, projectID int64, req *dto.CreateBudgetLineRequest) (*dto.BudgetLineResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermBudgetManage); err != nil {
		return nil, err
	}

	line := &model.BudgetLine{
		ProjectID:     projectID,
		OrgID:         access.project.OrgID,
		Category:      strings.TrimSpace(req.Category),
		Name:          strings.TrimSpace(req.Name),
		PlannedAmount: req.PlannedAmount,
		Currency:      normalizeCurrency(req.Currency),
	}
	if err := s.Store.BudgetLines().Create(ctx, line); err != nil {
		return nil, err
	}

	s.publish(ctx, model.BudgetLineTableName, realtime.EventInsert, map[string]int64{"id": line.ID, "project_id": projectID})
	return toBudgetLineResponse(line), nil
}

func (s *budgetService) Update(ctx context.Context, id int64, req *dto.UpdateBudgetLineRequest) (*dto.BudgetLineResponse, error) {
	line, err := s.Store.BudgetLines().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := loadProject(ctx, s.Store, line.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermBudgetManage); err != nil {
		return nil, err
	}

	if req.Category != nil {
		line.Category = strings.TrimSpace(*req.Category)
	}
	if req.Name != nil {
		line.Name = strings.TrimSpace(*req.Name)
	}
	if req.PlannedAmount != nil {
		line.PlannedAmount = req.PlannedAmount
	}
	if req.Currency != nil {
		line.Currency = normalizeCurrency(*req.Currency)
	}
	if err := s.Store.BudgetLines().Update(ctx, line); err != nil {
		return nil, err
	}

	s.publish(ctx, model.BudgetLineTableName, realtime.EventUpdate, map[string]int64{"id": line.ID, "project_id": line.ProjectID})
	return toBudgetLineResponse(line), nil
}

func (s *budgetService) Delete(ctx context.Context, id int64) error {
	line, err := s.Store.BudgetLines().FindByID(ctx, id)
	if err != nil {
		return err
	}
	access, err := loadProject(ctx, s.Store, line.ProjectID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermBudgetManage); err != nil {
		return err
	}
	if err := s.Store.BudgetLines().Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, model.BudgetLineTableName, realtime.EventDelete, map[string]int64{"id": id, "project_id": line.ProjectID})
	return nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return constants.DefaultCurrency
	}
	return c
}

func toBudgetLineResponse(l *model.BudgetLine) *dto.BudgetLineResponse {
	return &dto.BudgetLineResponse{
		ID:            l.ID,
		ProjectID:     l.ProjectID,
		Category:      l.Category,
		Name:          l.Name,
		PlannedAmount: l.PlannedAmount,
		Currency:      l.Currency,
	}
}

// TimeLogService 工时记录
//  1. 雇主组织取派工上的组织, 没有派工时取生效组织; 结算方总是项目所属组织
//  2. 只有结算方组织中拥有审批权限的成员可以审批, 只有已提交的记录可以审批
//  3. 外包方只能看到本组织员工的记录
type TimeLogService interface {
	List(ctx context.Context, projectID int64, req *dto.TimeLogListQuery) (*dto.TimeLogListResponse, error)
	Create(ctx context.Context, projectID int64, req *dto.CreateTimeLogRequest) (*dto.TimeLogResponse, error)
	Review(ctx context.Context, id int64, req *dto.ReviewTimeLogRequest) (*dto.TimeLogResponse, error)
	// Delete 本人删除尚未审批的记录
	Delete(ctx context.Context, id int64) error
	// Report 生效组织跨项目的工时, 按雇主组织 x 项目汇总
	Report(ctx context.Context, req *dto.HoursReportQuery) (*dto.HoursReportResponse, error)
}

type timeLogService struct {
	*Deps
}

func NewTimeLogService(deps *Deps) TimeLogService {
	return &timeLogService{Deps: deps}
}

func (s *timeLogService) List(ctx context.Context, projectID int64, req *dto.TimeLogListQuery) (*dto.TimeLogListResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermTimeLogView); err != nil {
		return nil, err
	}

	filter, err := buildTimeLogFilter(projectID, access, req)
	if err != nil {
		return nil, err
	}
	logs, err := s.Store.TimeLogs().List(ctx, filter)
	if err != nil {
		return nil, err
	}

	owner := access.OwnerOrgID()
	return &dto.TimeLogListResponse{
		Items: lo.Map(logs, func(l *model.TimeLog, _ int) *dto.TimeLogResponse {
			return toTimeLogResponse(l, owner)
		}),
		Totals: companyTotals(logs, owner),
	}, nil
}

func buildTimeLogFilter(projectID int64, access *projectAccess, req *dto.TimeLogListQuery) (repository.TimeLogFilter, error) {
	filter := repository.TimeLogFilter{ProjectID: projectID, UserID: req.UserID}
	if req.Status != "" {
		filter.Statuses = lo.Compact(lo.Map(strings.Split(req.Status, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}

	owner := access.project.OrgID
	switch req.Company {
	case constants.CompanyFilterInternal:
		filter.EmployerOrgID = &owner
	case constants.CompanyFilterVendors:
		filter.ExcludeEmployerOrgID = &owner
	}
	// 外包方只看本组织
	if !access.IsOwner() {
		if req.Company == constants.CompanyFilterInternal {
			return filter, pkgErrors.ErrAccessDenied
		}
		filter.ExcludeEmployerOrgID = nil
		filter.EmployerOrgID = lo.ToPtr(access.orgID)
	}

	var err error
	if filter.From, err = dto.ParseDayBound(strings.TrimSpace(req.DateFrom), false); err != nil {
		return filter, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "开始时间格式错误", err)
	}
	if filter.To, err = dto.ParseDayBound(strings.TrimSpace(req.DateTo), true); err != nil {
		return filter, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "结束时间格式错误", err)
	}
	return filter, nil
}

// companyTotals 按雇主组织汇总分钟数, 内部在前
func companyTotals(logs []*model.TimeLog, owner *int64) []*dto.CompanyTotal {
	groups := lo.GroupBy(logs, func(l *model.TimeLog) int64 { return l.EmployerOrgID })
	totals := make([]*dto.CompanyTotal, 0, len(groups))
	for orgID, list := range groups {
		total := &dto.CompanyTotal{
			EmployerOrgID: orgID,
			Company:       string(scope.ClassifyCompany(orgID, owner)),
			Minutes:       lo.SumBy(list, func(l *model.TimeLog) int { return l.Minutes }),
		}
		if list[0].EmployerOrg != nil {
			total.EmployerName = list[0].EmployerOrg.Name
		}
		totals = append(totals, total)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Company != totals[j].Company {
			return totals[i].Company == string(scope.Internal)
		}
		return totals[i].EmployerOrgID < totals[j].EmployerOrgID
	})
	return totals
}

func (s *timeLogService) Create(ctx context.Context, projectID int64, req *dto.CreateTimeLogRequest) (*dto.TimeLogResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermTimeLogCreate); err != nil {
		return nil, err
	}

	started, ended, minutes, err := parseWorkPeriod(req)
	if err != nil {
		return nil, err
	}

	employer := access.orgID
	assignment, err := s.Store.Assignments().Find(ctx, projectID, access.scope.UserID)
	switch {
	case err == nil:
		employer = assignment.EmployerOrgID
	case !errors.Is(err, pkgErrors.ErrRecordNotFound):
		return nil, err
	}

	log := &model.TimeLog{
		ProjectID:     projectID,
		UserID:        access.scope.UserID,
		EmployerOrgID: employer,
		BillToOrgID:   access.project.OrgID,
		StartedAt:     started,
		EndedAt:       ended,
		Minutes:       minutes,
		Status:        constants.TimeLogStatusSubmitted,
		Note:          req.Note,
	}
	if err := s.Store.TimeLogs().Create(ctx, log); err != nil {
		return nil, err
	}

	s.publish(ctx, model.TimeLogTableName, realtime.EventInsert, map[string]int64{"id": log.ID, "project_id": projectID})
	return toTimeLogResponse(log, access.OwnerOrgID()), nil
}

func (s *timeLogService) Report(ctx context.Context, req *dto.HoursReportQuery) (*dto.HoursReportResponse, error) {
	sc, orgID, err := activeScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(sc, auth.PermTimeLogReport); err != nil {
		return nil, err
	}
	from, err := dto.ParseDayBound(strings.TrimSpace(req.DateFrom), false)
	if err != nil || from == nil {
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "开始时间格式错误")
	}
	to, err := dto.ParseDayBound(strings.TrimSpace(req.DateTo), true)
	if err != nil || to == nil {
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "结束时间格式错误")
	}
	if to.Before(*from) {
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "结束时间不能早于开始时间")
	}
	if req.ProjectID != nil {
		if _, err := loadProject(ctx, s.Store, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	filter := repository.OrgTimeLogFilter{OrgID: orgID, ProjectID: req.ProjectID, From: *from, To: *to}
	if req.Status != "" {
		filter.Statuses = lo.Compact(lo.Map(strings.Split(req.Status, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}
	logs, err := s.Store.TimeLogs().ListForOrg(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := reportRows(logs)
	return &dto.HoursReportResponse{
		From:         dto.FormatTime(*from),
		To:           dto.FormatTime(*to),
		Rows:         rows,
		TotalMinutes: lo.SumBy(rows, func(r *dto.HoursReportRow) int { return r.Minutes }),
	}, nil
}

type reportKey struct {
	projectID  int64
	employerID int64
}

// reportRows 按 (项目, 雇主组织) 分组, 公司归属以结算方为准
func reportRows(logs []*model.TimeLog) []*dto.HoursReportRow {
	groups := lo.GroupBy(logs, func(l *model.TimeLog) reportKey {
		return reportKey{projectID: l.ProjectID, employerID: l.EmployerOrgID}
	})
	rows := make([]*dto.HoursReportRow, 0, len(groups))
	for key, list := range groups {
		first := list[0]
		minutes := lo.SumBy(list, func(l *model.TimeLog) int { return l.Minutes })
		row := &dto.HoursReportRow{
			EmployerOrgID: key.employerID,
			ProjectID:     key.projectID,
			Company:       string(scope.ClassifyCompany(key.employerID, lo.ToPtr(first.BillToOrgID))),
			Minutes:       minutes,
			Hours:         math.Round(float64(minutes)/60*100) / 100,
		}
		if first.EmployerOrg != nil {
			row.EmployerName = first.EmployerOrg.Name
		}
		if first.Project != nil {
			row.ProjectName = first.Project.Name
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProjectID != rows[j].ProjectID {
			return rows[i].ProjectID < rows[j].ProjectID
		}
		return rows[i].EmployerOrgID < rows[j].EmployerOrgID
	})
	return rows
}

// parseWorkPeriod 有结束时间时按时间差计算分钟数, 否则使用填写的分钟数
func parseWorkPeriod(req *dto.CreateTimeLogRequest) (time.Time, *time.Time, int, error) {
	started, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartedAt))
	if err != nil {
		return time.Time{}, nil, 0, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "开始时间格式错误", err)
	}
	started = started.UTC()

	if strings.TrimSpace(req.EndedAt) == "" {
		if req.Minutes == nil {
			return time.Time{}, nil, 0, pkgErrors.New(pkgErrors.CodeBadRequest, "需要填写结束时间或分钟数")
		}
		return started, nil, *req.Minutes, nil
	}

	ended, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndedAt))
	if err != nil {
		return time.Time{}, nil, 0, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "结束时间格式错误", err)
	}
	ended = ended.UTC()
	if !ended.After(started) {
		return time.Time{}, nil, 0, pkgErrors.New(pkgErrors.CodeBadRequest, "结束时间必须晚于开始时间")
	}
	minutes := int(ended.Sub(started) / time.Minute)
	if req.Minutes != nil {
		minutes = *req.Minutes
	}
	return started, &ended, minutes, nil
}

func (s *timeLogService) Review(ctx context.Context, id int64, req *dto.ReviewTimeLogRequest) (*dto.TimeLogResponse, error) {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !constants.IsTimeLogReview(req.Status) {
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "审批状态无效")
	}
	log, err := s.Store.TimeLogs().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 审批权限看结算方组织中的角色, 与当前生效组织无关
	m, ok := sc.Membership(log.BillToOrgID)
	if !ok || !auth.Allow([]string{m.Role}, auth.PermTimeLogApprove) {
		return nil, pkgErrors.ErrAccessDenied
	}
	if log.Status != constants.TimeLogStatusSubmitted {
		return nil, pkgErrors.New(pkgErrors.CodeConflict, "只能审批已提交的工时")
	}

	now := s.now()
	if err := s.Store.TimeLogs().UpdateStatus(ctx, id, req.Status, sc.UserID, now); err != nil {
		return nil, err
	}
	log.Status = req.Status
	log.ReviewedBy = &sc.UserID
	log.ReviewedAt = &now

	logger.Ctx(ctx, s.Logger).Info("审批工时",
		zap.Int64("time_log_id", id),
		zap.String("status", constants.TimeLogStatusToString(req.Status)),
		zap.Int64("reviewer", sc.UserID))
	s.publish(ctx, model.TimeLogTableName, realtime.EventUpdate, map[string]int64{"id": id, "project_id": log.ProjectID})
	return toTimeLogResponse(log, lo.ToPtr(log.BillToOrgID)), nil
}

func (s *timeLogService) Delete(ctx context.Context, id int64) error {
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		return err
	}
	log, err := s.Store.TimeLogs().FindByID(ctx, id)
	if err != nil {
		return err
	}
	if log.UserID != sc.UserID {
		return pkgErrors.ErrAccessDenied
	}
	if log.Status != constants.TimeLogStatusSubmitted {
		return pkgErrors.New(pkgErrors.CodeConflict, "已审批的工时不能删除")
	}
	if err := s.Store.TimeLogs().Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, model.TimeLogTableName, realtime.EventDelete, map[string]int64{"id": id, "project_id": log.ProjectID})
	return nil
}

func toTimeLogResponse(l *model.TimeLog, owner *int64) *dto.TimeLogResponse {
	resp := &dto.TimeLogResponse{
		ID:            l.ID,
		ProjectID:     l.ProjectID,
		UserID:        l.UserID,
		EmployerOrgID: l.EmployerOrgID,
		BillToOrgID:   l.BillToOrgID,
		Company:       string(scope.ClassifyCompany(l.EmployerOrgID, owner)),
		StartedAt:     dto.FormatTime(l.StartedAt),
		EndedAt:       dto.FormatTimePtr(l.EndedAt),
		Minutes:       l.Minutes,
		Status:        l.Status,
		Note:          l.Note,
	}
	if l.User != nil {
		resp.UserName = l.User.Name()
	}
	if l.EmployerOrg != nil {
		resp.EmployerName = l.EmployerOrg.Name
	}
	return resp
}
