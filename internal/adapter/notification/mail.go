package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/config"
)

// MailNotifier 把邀请链接发给受邀邮箱
type MailNotifier struct {
	client   *mail.Client
	from     string
	fromName string
	logger   *zap.Logger
}

// NewMailNotifier 创建邮件通知器
func NewMailNotifier(cfg *config.SMTPConfig, logger *zap.Logger) (*MailNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("SMTP未配置: host 与 from 必填")
	}
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化SMTP客户端失败: %w", err)
	}
	return &MailNotifier{
		client:   client,
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger,
	}, nil
}

// BuildMessage 构造邮件
func (n *MailNotifier) BuildMessage(msg *InviteMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if n.fromName != "" {
		if err := m.FromFormat(n.fromName, n.from); err != nil {
			return nil, fmt.Errorf("设置发件人失败: %w", err)
		}
	} else if err := m.From(n.from); err != nil {
		return nil, fmt.Errorf("设置发件人失败: %w", err)
	}
	if err := m.To(msg.Email); err != nil {
		return nil, fmt.Errorf("设置收件人失败: %w", err)
	}
	m.Subject(msg.Title())
	m.SetBodyString(mail.TypeTextPlain, msg.Body())
	return m, nil
}

// SendInvite 只投递新建邀请, 其余类型忽略
func (n *MailNotifier) SendInvite(ctx context.Context, msg *InviteMessage) error {
	if msg.Type != NotifyInviteCreated {
		return nil
	}
	m, err := n.BuildMessage(msg)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("发送邀请邮件失败: %w", err)
	}
	n.logger.Info("邀请邮件已发送", zap.String("email", msg.Email))
	return nil
}
