package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker 基于 Redis Pub/Sub, 多实例部署时使用
// 每张表一个频道: <prefix><table>
type RedisBroker struct {
	rdb    *redis.Client
	prefix string
	buffer int
	logger *zap.Logger
}

// NewRedisBroker 创建 Redis broker
func NewRedisBroker(rdb *redis.Client, prefix string, buffer int, logger *zap.Logger) *RedisBroker {
	if buffer < 1 {
		buffer = 1
	}
	return &RedisBroker{
		rdb:    rdb,
		prefix: prefix,
		buffer: buffer,
		logger: logger,
	}
}

// Channel 表对应的频道名
func (b *RedisBroker) Channel(table string) string {
	return b.prefix + table
}

// Publish 发布变更
func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("序列化变更失败: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.Channel(c.Table), data).Err(); err != nil {
		return fmt.Errorf("发布变更失败: %w", err)
	}
	return nil
}

// Subscribe 订阅, 确认订阅成功后才返回
func (b *RedisBroker) Subscribe(ctx context.Context, topics ...Topic) (*Subscription, error) {
	channels := make([]string, 0, len(topics))
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		ch := b.Channel(t.Table)
		if !seen[ch] {
			seen[ch] = true
			channels = append(channels, ch)
		}
	}

	ps := b.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("订阅失败: %w", err)
	}

	out := make(chan Change, b.buffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					b.logger.Warn("丢弃无法解析的变更消息", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				if matchAny(topics, c) {
					offer(out, c)
				}
			}
		}
	}()

	return &Subscription{C: out, cancel: cancel}, nil
}

// Close 关闭连接
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
