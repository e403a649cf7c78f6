package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

// stubTimeLogs 只实现报表
type stubTimeLogs struct {
	service.TimeLogService
	got *dto.HoursReportQuery
}

func (s *stubTimeLogs) Report(_ context.Context, q *dto.HoursReportQuery) (*dto.HoursReportResponse, error) {
	s.got = q
	return &dto.HoursReportResponse{
		From: "2024-05-01T00:00:00Z",
		To:   "2024-05-31T23:59:59Z",
		Rows: []*dto.HoursReportRow{
			{EmployerOrgID: 1, EmployerName: "Acme", ProjectID: 10, ProjectName: "Riverside Tower", Company: "internal", Minutes: 180, Hours: 3},
			{EmployerOrgID: 2, ProjectID: 10, Company: "vendor", Minutes: 50, Hours: 0.83},
		},
		TotalMinutes: 230,
	}, nil
}

func reportEngine(svc service.TimeLogService) *gin.Engine {
	r := gin.New()
	r.GET("/report", NewLedgerHandler(nil, svc).HoursReport)
	return r
}

func TestHoursReportJSON(t *testing.T) {
	svc := &stubTimeLogs{}
	w := httptest.NewRecorder()
	reportEngine(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report?from=2024-05-01&to=2024-05-31&status=approved", nil))

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	require.NotNil(t, svc.got)
	assert.Equal(t, "2024-05-01", svc.got.DateFrom)
	assert.Equal(t, "approved", svc.got.Status)
}

func TestHoursReportCSV(t *testing.T) {
	w := httptest.NewRecorder()
	reportEngine(&stubTimeLogs{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report?from=2024-05-01&to=2024-05-31&format=csv", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t,
		"company,project,minutes,hours\nAcme,Riverside Tower,180,3.00\n2,10,50,0.83\n",
		w.Body.String())
}
