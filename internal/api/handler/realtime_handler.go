package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/internal/pkg/realtime"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

const defaultHeartbeat = 25 * time.Second

// ProjectReader 读取项目, 生效组织无权访问时返回错误
type ProjectReader interface {
	Get(ctx context.Context, id int64) (*dto.ProjectResponse, error)
}

// RealtimeHandler 通过 SSE 推送数据变更, 客户端收到后重新拉取对应列表
type RealtimeHandler struct {
	broker    realtime.Broker
	projects  ProjectReader
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewRealtimeHandler(broker realtime.Broker, projects ProjectReader, heartbeat time.Duration, logger *zap.Logger) *RealtimeHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &RealtimeHandler{
		broker:    broker,
		projects:  projects,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Stream 订阅变更
// @Summary 订阅数据变更(SSE)
// @Description topic 形如 tasks:project_id=eq.5, 可重复; 只推送生效组织可见的变更
// @Tags 实时
// @Produce text/event-stream
// @Security ApiKeyAuth
// @Param topic query []string true "订阅条件" collectionFormat(multi)
// @Router /api/v1/realtime [get]
func (h *RealtimeHandler) Stream(c *gin.Context) {
	raw := c.QueryArray("topic")
	if len(raw) == 0 {
		utils.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", "至少需要一个 topic")
		return
	}

	ctx := c.Request.Context()
	sc, err := scope.MustFromContext(ctx)
	if err != nil {
		utils.Error(c, err)
		return
	}
	guard := newChangeGuard(ctx, sc, h.projects)

	topics := make([]realtime.Topic, 0, len(raw))
	for _, s := range raw {
		t, err := realtime.ParseTopic(s)
		if err != nil {
			utils.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", err.Error())
			return
		}
		// 过滤条件明确指向项目或组织时提前拒绝
		switch t.Column {
		case "project_id":
			if _, err := h.projects.Get(ctx, t.Value); err != nil {
				utils.Error(c, err)
				return
			}
		case "org_id":
			if !sc.IsMember(t.Value) {
				utils.Error(c, pkgErrors.ErrAccessDenied)
				return
			}
		}
		topics = append(topics, t)
	}

	sub, err := h.broker.Subscribe(ctx, topics...)
	if err != nil {
		utils.Error(c, err)
		return
	}
	defer sub.Close()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	logger.Ctx(ctx, h.logger).Debug("realtime订阅", zap.Strings("topics", raw))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case change, ok := <-sub.C:
			if !ok {
				return false
			}
			if guard.Visible(change) {
				c.SSEvent("change", change)
			}
			return true
		case <-ticker.C:
			// 参与关系可能已变化, 每个心跳周期重新校验
			guard.Reset()
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}

// changeGuard 逐条判断变更对当前订阅者是否可见
//   - 带 org_id 且订阅者是该组织成员: 可见
//   - 能解析出项目且生效组织是该项目参与方: 可见
//   - 其余一律丢弃
type changeGuard struct {
	ctx      context.Context
	scope    *scope.Scope
	projects ProjectReader
	cache    map[int64]bool
}

func newChangeGuard(ctx context.Context, sc *scope.Scope, projects ProjectReader) *changeGuard {
	return &changeGuard{
		ctx:      ctx,
		scope:    sc,
		projects: projects,
		cache:    make(map[int64]bool),
	}
}

func (g *changeGuard) Visible(c realtime.Change) bool {
	if orgID, ok := c.Keys["org_id"]; ok && g.scope.IsMember(orgID) {
		return true
	}
	projectID, ok := changeProjectID(c)
	if !ok {
		return false
	}
	return g.canAccess(projectID)
}

func (g *changeGuard) canAccess(projectID int64) bool {
	if allowed, ok := g.cache[projectID]; ok {
		return allowed
	}
	_, err := g.projects.Get(g.ctx, projectID)
	if err != nil && !isDenied(err) {
		// 读取失败时不缓存, 下一条变更再试
		return false
	}
	g.cache[projectID] = err == nil
	return err == nil
}

func (g *changeGuard) Reset() {
	clear(g.cache)
}

// changeProjectID 项目表自身的变更以 id 作为项目 ID
func changeProjectID(c realtime.Change) (int64, bool) {
	if id, ok := c.Keys["project_id"]; ok {
		return id, true
	}
	if c.Table == model.ProjectTableName {
		id, ok := c.Keys["id"]
		return id, ok
	}
	return 0, false
}

func isDenied(err error) bool {
	switch pkgErrors.CodeOf(err) {
	case pkgErrors.CodeForbidden, pkgErrors.CodeNotFound:
		return true
	}
	return false
}
