package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/config"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyInviteCreated  NotificationType = "invite_created"  // 发出邀请
	NotifyInviteAccepted NotificationType = "invite_accepted" // 邀请被接受
	NotifyInviteExpired  NotificationType = "invite_expired"  // 邀请过期
)

// InviteMessage 邀请通知内容
type InviteMessage struct {
	Type        NotificationType `json:"type"`
	Email       string           `json:"email"`
	ProjectName string           `json:"project_name"`
	OrgName     string           `json:"org_name"` // 受邀方的雇主组织
	Role        string           `json:"role"`
	Link        string           `json:"link,omitempty"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Title 通知标题
func (m *InviteMessage) Title() string {
	switch m.Type {
	case NotifyInviteCreated:
		return fmt.Sprintf("You're invited to %s", m.ProjectName)
	case NotifyInviteAccepted:
		return fmt.Sprintf("%s joined %s", m.Email, m.ProjectName)
	case NotifyInviteExpired:
		return fmt.Sprintf("Invite for %s expired", m.Email)
	default:
		return "BuildBuddy notification"
	}
}

// Body 纯文本正文
func (m *InviteMessage) Body() string {
	switch m.Type {
	case NotifyInviteCreated:
		return fmt.Sprintf("You have been invited to join project %s as %s on behalf of %s.\n\nAccept the invite: %s\n\nThis link expires on %s.",
			m.ProjectName, m.Role, m.OrgName, m.Link, m.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	case NotifyInviteAccepted:
		return fmt.Sprintf("%s accepted the invite to %s as %s (%s).", m.Email, m.ProjectName, m.Role, m.OrgName)
	default:
		return fmt.Sprintf("The invite sent to %s for %s expired on %s.",
			m.Email, m.ProjectName, m.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	}
}

// Notifier 通知器接口
type Notifier interface {
	// SendInvite 发送邀请相关通知
	SendInvite(ctx context.Context, msg *InviteMessage) error
}

// New 按配置创建通知器, 未启用时只记录日志
func New(cfg *config.NotificationConfig, logger *zap.Logger) (Notifier, error) {
	logNotifier := NewLogNotifier(logger)
	if !cfg.Enabled {
		return logNotifier, nil
	}
	switch cfg.Provider {
	case "", "log":
		return logNotifier, nil
	case "lark":
		return NewMultiNotifier(logger, logNotifier, NewLarkNotifier(cfg.LarkWebhook, true, logger)), nil
	case "mail":
		mailer, err := NewMailNotifier(&cfg.SMTP, logger)
		if err != nil {
			return nil, err
		}
		return NewMultiNotifier(logger, logNotifier, mailer), nil
	default:
		return nil, fmt.Errorf("不支持的通知渠道: %s", cfg.Provider)
	}
}

// ============= 多通知器 =============

// MultiNotifier 多通知器(支持同时发送到多个渠道)
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMultiNotifier 创建多通知器
func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// SendInvite 发送到所有通知器, 单个失败不影响其他渠道
func (m *MultiNotifier) SendInvite(ctx context.Context, msg *InviteMessage) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.SendInvite(ctx, msg); err != nil {
			m.logger.Error("发送邀请通知失败", zap.String("type", string(msg.Type)), zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// ============= 日志通知器 =============

// LogNotifier 日志通知器
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// SendInvite 记录通知到日志
func (n *LogNotifier) SendInvite(ctx context.Context, msg *InviteMessage) error {
	n.logger.Info("邀请通知",
		zap.String("type", string(msg.Type)),
		zap.String("email", msg.Email),
		zap.String("project", msg.ProjectName),
		zap.String("org", msg.OrgName),
		zap.String("link", msg.Link))
	return nil
}
