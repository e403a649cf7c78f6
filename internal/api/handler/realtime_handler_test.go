package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/realtime"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubProjects allowed 之外的项目一律拒绝
type stubProjects struct {
	allowed map[int64]bool
	calls   atomic.Int32
}

func (s *stubProjects) Get(_ context.Context, id int64) (*dto.ProjectResponse, error) {
	s.calls.Add(1)
	if !s.allowed[id] {
		return nil, pkgErrors.ErrAccessDenied
	}
	return &dto.ProjectResponse{ID: id}, nil
}

// acmeScope Acme(1) 的管理员, 只参与项目 1
func acmeScope() *scope.Scope {
	return &scope.Scope{
		UserID:      7,
		Memberships: []scope.Membership{{OrgID: 1, Role: "org_admin", OrgName: "Acme"}},
		ActiveOrgID: 1,
		HasActive:   true,
	}
}

func newRealtimeEngine(broker realtime.Broker, projects ProjectReader) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(scope.WithScope(c.Request.Context(), acmeScope()))
	})
	r.GET("/rt", NewRealtimeHandler(broker, projects, time.Hour, zap.NewNop()).Stream)
	return r
}

func TestRealtimeRejectsForeignTopics(t *testing.T) {
	broker := realtime.NewMemoryBroker(8)
	r := newRealtimeEngine(broker, &stubProjects{allowed: map[int64]bool{1: true}})

	for topic, code := range map[string]int{
		"tasks:project_id=eq.999":          pkgErrors.CodeForbidden,
		"organization_members:org_id=eq.2": pkgErrors.CodeForbidden,
		"tasks:project_id=gt.1":            pkgErrors.CodeBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rt?topic="+topic, nil))

		var resp utils.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), topic)
		assert.Equal(t, code, resp.Code, topic)
	}
	assert.Zero(t, broker.Len())
}

func TestRealtimeDropsChangesOutsideScope(t *testing.T) {
	broker := realtime.NewMemoryBroker(16)
	projects := &stubProjects{allowed: map[int64]bool{1: true}}
	srv := httptest.NewServer(newRealtimeEngine(broker, projects))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/rt?topic=tasks&topic=time_logs:user_id=eq.42&topic=organization_members&topic=projects", nil)
	require.NoError(t, err)

	respCh := make(chan *http.Response, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			respCh <- resp
		}
	}()
	require.Eventually(t, func() bool { return broker.Len() == 1 }, time.Second, 10*time.Millisecond)

	// 其他租户的变更, 以及无法判断归属的变更
	for _, c := range []realtime.Change{
		realtime.NewChange(model.TaskTableName, realtime.EventInsert, map[string]int64{"id": 7, "project_id": 999}),
		realtime.NewChange(model.TimeLogTableName, realtime.EventInsert, map[string]int64{"id": 8, "project_id": 999, "user_id": 42}),
		realtime.NewChange(model.OrganizationMemberTableName, realtime.EventInsert, map[string]int64{"org_id": 2, "user_id": 42}),
		realtime.NewChange(model.ProjectTableName, realtime.EventUpdate, map[string]int64{"id": 999, "org_id": 2}),
		realtime.NewChange(model.TaskTableName, realtime.EventUpdate, map[string]int64{"id": 9}),
	} {
		require.NoError(t, broker.Publish(context.Background(), c))
	}
	// 自己的变更
	require.NoError(t, broker.Publish(context.Background(),
		realtime.NewChange(model.TaskTableName, realtime.EventInsert, map[string]int64{"id": 10, "project_id": 1})))
	require.NoError(t, broker.Publish(context.Background(),
		realtime.NewChange(model.OrganizationMemberTableName, realtime.EventInsert, map[string]int64{"org_id": 1, "user_id": 8})))

	var resp *http.Response
	select {
	case resp = <-respCh:
	case <-time.After(2 * time.Second):
		t.Fatal("超时未收到响应")
	}
	defer resp.Body.Close()

	got := readChanges(t, resp, 2)
	assert.Equal(t, int64(1), got[0].Keys["project_id"])
	assert.Equal(t, int64(10), got[0].Keys["id"])
	assert.Equal(t, model.OrganizationMemberTableName, got[1].Table)
	assert.Equal(t, int64(1), got[1].Keys["org_id"])
	// 同一项目只查询一次
	assert.Equal(t, int32(2), projects.calls.Load())
}

// readChanges 读取前 n 个 change 事件
func readChanges(t *testing.T, resp *http.Response, n int) []realtime.Change {
	t.Helper()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var changes []realtime.Change
	event := ""
	for len(changes) < n {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "连接提前关闭")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:") && event == "change":
				var c realtime.Change
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &c))
				changes = append(changes, c)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("超时, 已收到 %d 条变更", len(changes))
		}
	}
	return changes
}
