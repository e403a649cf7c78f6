package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/service"
)

const defaultInviteSweepCron = "0 */5 * * * *"

// InviteSweeper 通知一段时间内过期的邀请
type InviteSweeper interface {
	SweepExpired(ctx context.Context, from, to time.Time) (int, error)
}

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	sweeper       InviteSweeper
	now           func() time.Time
	cronSchedules map[string]cron.EntryID

	mu        sync.Mutex
	lastSweep time.Time
}

// NewScheduler 创建调度器
func NewScheduler(invites service.InviteService, logger *zap.Logger) *Scheduler {
	return newScheduler(invites, logger, time.Now)
}

func newScheduler(sweeper InviteSweeper, logger *zap.Logger, now func() time.Time) *Scheduler {
	return &Scheduler{
		// 带秒级支持
		cron:          cron.New(cron.WithSeconds()),
		logger:        logger,
		sweeper:       sweeper,
		now:           now,
		cronSchedules: make(map[string]cron.EntryID),
		lastSweep:     now().UTC(),
	}
}

// Start 启动调度器
func (s *Scheduler) Start(cfg *config.SchedulerConfig) error {
	log := s.logger.Sugar()
	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.InviteSweepCron
	if cronExpr == "" {
		cronExpr = defaultInviteSweepCron
		log.Warn("未配置scheduler.invite_sweep_cron，使用默认值", zap.String("cron", cronExpr))
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		if _, err := s.SweepInvites(context.Background()); err != nil {
			log.Errorf("邀请过期扫描失败: %v", err)
		}
	})
	if err != nil {
		log.Errorf("注册邀请过期扫描: %v 任务失败: %v", cronExpr, err)
		return err
	}

	s.cronSchedules["invite_sweep"] = entryID
	log.Infof("邀请过期扫描任务已注册: %s entry_id=%d", cronExpr, entryID)

	s.cron.Start()
	log.Info("定时任务调度器启动成功")
	return nil
}

// Stop 停止调度器, 等待正在执行的任务完成
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("定时任务调度器已停止")
}

// SweepInvites 扫描上次执行之后过期的邀请
// 失败时不推进时间窗口, 下次执行会重新覆盖
func (s *Scheduler) SweepInvites(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	to := s.now().UTC()
	n, err := s.sweeper.SweepExpired(ctx, s.lastSweep, to)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.logger.Info("邀请过期扫描完成", zap.Int("expired", n), zap.Time("from", s.lastSweep), zap.Time("to", to))
	}
	s.lastSweep = to
	return n, nil
}
