package service

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// withWorker 把 workerID 加为 Acme 的普通成员
func (f *fixture) withWorker(t *testing.T) context.Context {
	t.Helper()
	require.NoError(t, f.store.Members().Create(context.Background(),
		&model.OrganizationMember{OrgID: f.acme.ID, UserID: workerID, Role: constants.OrgRoleWorker}))
	return scopeCtx(f.store, workerID, "w@acme.test", nil)
}

func shiftReq(start, end string) *dto.CreateShiftRequest {
	return &dto.CreateShiftRequest{StartAt: start, EndAt: end}
}

func TestShiftCreate(t *testing.T) {
	f := newFixture(t)
	svc := NewShiftService(f.deps)
	workerCtx := f.withWorker(t)

	own, err := svc.Create(f.adminCtx(), shiftReq("2024-05-02T08:00:00Z", "2024-05-02T16:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, adminID, own.UserID)
	assert.Equal(t, f.acme.ID, own.OrgID)
	assert.Equal(t, 480, own.Minutes)
	assert.Contains(t, f.pub.tables(), model.ShiftTableName)

	_, err = svc.Create(f.adminCtx(), shiftReq("2024-05-02T16:00:00Z", "2024-05-02T16:00:00Z"))
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))
	_, err = svc.Create(f.adminCtx(), shiftReq("09:00", "17:00"))
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))

	// 管理员给成员排班, 非成员不行
	req := shiftReq("2024-05-03T07:00:00Z", "2024-05-03T15:00:00Z")
	req.UserID = lo.ToPtr(workerID)
	req.ProjectID = &f.project.ID
	forWorker, err := svc.Create(f.adminCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, workerID, forWorker.UserID)
	assert.Equal(t, "Riverside Tower", forWorker.ProjectName)

	req.UserID = lo.ToPtr(vendorID)
	_, err = svc.Create(f.adminCtx(), req)
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))

	// 普通成员只能给自己排班
	req.UserID = lo.ToPtr(adminID)
	_, err = svc.Create(workerCtx, req)
	assert.ErrorIs(t, err, pkgErrors.ErrAccessDenied)
	_, err = svc.Create(workerCtx, shiftReq("2024-05-04T07:00:00Z", "2024-05-04T11:00:00Z"))
	assert.NoError(t, err)

	// 不参与的项目不能关联
	vendorReq := shiftReq("2024-05-03T07:00:00Z", "2024-05-03T15:00:00Z")
	vendorReq.ProjectID = &f.project.ID
	_, err = svc.Create(scopeCtx(f.store, vendorID, "", nil), vendorReq)
	assert.ErrorIs(t, err, pkgErrors.ErrAccessDenied)
}

func TestShiftListAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := NewShiftService(f.deps)
	workerCtx := f.withWorker(t)

	mine, err := svc.Create(f.adminCtx(), shiftReq("2024-05-02T08:00:00Z", "2024-05-02T16:00:00Z"))
	require.NoError(t, err)
	workers, err := svc.Create(workerCtx, shiftReq("2024-05-06T08:00:00Z", "2024-05-06T12:00:00Z"))
	require.NoError(t, err)

	all, err := svc.List(workerCtx, &dto.ShiftListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, mine.ID, all[0].ID)

	week, err := svc.List(f.adminCtx(), &dto.ShiftListQuery{DateFrom: "2024-05-05", DateTo: "2024-05-11"})
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, workers.ID, week[0].ID)

	// 其他组织看不到
	vendorCtx := scopeCtx(f.store, vendorID, "", nil)
	none, err := svc.List(vendorCtx, &dto.ShiftListQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.ErrorIs(t, svc.Delete(vendorCtx, mine.ID), pkgErrors.ErrRecordNotFound)

	assert.ErrorIs(t, svc.Delete(workerCtx, mine.ID), pkgErrors.ErrAccessDenied)
	require.NoError(t, svc.Delete(workerCtx, workers.ID))
	require.NoError(t, svc.Delete(f.adminCtx(), mine.ID))
	assert.Empty(t, f.store.shifts)
}

func TestHoursReport(t *testing.T) {
	f := newFixture(t)
	svc := NewTimeLogService(f.deps)
	workerCtx := f.withWorker(t)

	office, err := NewProjectService(f.deps).Create(f.adminCtx(), &dto.CreateProjectRequest{Name: "Harbor Office"})
	require.NoError(t, err)
	other := &model.Organization{Name: "Elsewhere", Slug: "elsewhere"}
	require.NoError(t, f.store.Organizations().Create(context.Background(), other))

	day := func(d int) time.Time { return time.Date(2024, 5, d, 8, 0, 0, 0, time.UTC) }
	for _, l := range []*model.TimeLog{
		{ProjectID: f.project.ID, EmployerOrgID: f.acme.ID, BillToOrgID: f.acme.ID, StartedAt: day(2), Minutes: 120, Status: constants.TimeLogStatusApproved},
		{ProjectID: f.project.ID, EmployerOrgID: f.acme.ID, BillToOrgID: f.acme.ID, StartedAt: day(9), Minutes: 60, Status: constants.TimeLogStatusSubmitted},
		{ProjectID: f.project.ID, EmployerOrgID: f.vendor.ID, BillToOrgID: f.acme.ID, StartedAt: day(3), Minutes: 90, Status: constants.TimeLogStatusApproved},
		{ProjectID: office.ID, EmployerOrgID: f.acme.ID, BillToOrgID: f.acme.ID, StartedAt: day(20), Minutes: 30, Status: constants.TimeLogStatusApproved},
		// 范围外
		{ProjectID: f.project.ID, EmployerOrgID: f.acme.ID, BillToOrgID: f.acme.ID, StartedAt: day(2).AddDate(0, -1, 0), Minutes: 500},
		// 与 Acme 无关
		{ProjectID: 999, EmployerOrgID: other.ID, BillToOrgID: other.ID, StartedAt: day(2), Minutes: 700},
	} {
		require.NoError(t, f.store.TimeLogs().Create(context.Background(), l))
	}

	may := &dto.HoursReportQuery{DateFrom: "2024-05-01", DateTo: "2024-05-31"}
	report, err := svc.Report(f.adminCtx(), may)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, 300, report.TotalMinutes)

	first := report.Rows[0]
	assert.Equal(t, f.project.ID, first.ProjectID)
	assert.Equal(t, f.acme.ID, first.EmployerOrgID)
	assert.Equal(t, 180, first.Minutes)
	assert.InDelta(t, 3.0, first.Hours, 0.001)
	assert.Equal(t, "internal", first.Company)
	assert.Equal(t, "Riverside Tower", first.ProjectName)

	assert.Equal(t, f.vendor.ID, report.Rows[1].EmployerOrgID)
	assert.Equal(t, "vendor", report.Rows[1].Company)
	assert.Equal(t, "Vendor GmbH", report.Rows[1].EmployerName)
	assert.Equal(t, office.ID, report.Rows[2].ProjectID)

	approved, err := svc.Report(f.adminCtx(), &dto.HoursReportQuery{DateFrom: "2024-05-01", DateTo: "2024-05-31", Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, 240, approved.TotalMinutes)

	onlyOffice, err := svc.Report(f.adminCtx(), &dto.HoursReportQuery{DateFrom: "2024-05-01", DateTo: "2024-05-31", ProjectID: &office.ID})
	require.NoError(t, err)
	require.Len(t, onlyOffice.Rows, 1)
	assert.Equal(t, 30, onlyOffice.TotalMinutes)

	// 外包方只看到本组织员工
	vendorReport, err := svc.Report(scopeCtx(f.store, vendorID, "", nil), may)
	require.NoError(t, err)
	require.Len(t, vendorReport.Rows, 1)
	assert.Equal(t, 90, vendorReport.TotalMinutes)

	_, err = svc.Report(workerCtx, may)
	assert.ErrorIs(t, err, pkgErrors.ErrAccessDenied)

	_, err = svc.Report(f.adminCtx(), &dto.HoursReportQuery{DateFrom: "2024-05-31", DateTo: "2024-05-01"})
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))
}

