package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/config"
)

// NewBroker 按配置创建 broker
func NewBroker(cfg *config.RealtimeConfig, logger *zap.Logger) (Broker, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryBroker(cfg.Buffer), nil
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("解析Redis地址失败: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("连接Redis失败: %w", err)
		}
		return NewRedisBroker(rdb, cfg.ChannelPrefix, cfg.Buffer, logger), nil
	default:
		return nil, fmt.Errorf("不支持的realtime驱动: %s", cfg.Driver)
	}
}
