// Package realtime 发布数据变更并按 {表, 过滤条件} 推送给订阅者。
//
// 投递语义为"至少一次刷新": 订阅者收到变更后重新拉取相关列表,
// 缓冲已满时丢弃的事件不会影响结果, 因为缓冲中已有一次待处理的刷新。
package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event 变更类型
type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

// Change 一次已提交的数据变更
type Change struct {
	Table string           `json:"table"`
	Event Event            `json:"event"`
	Keys  map[string]int64 `json:"keys"` // id, project_id 等用于过滤的键
	At    time.Time        `json:"at"`
}

// NewChange 创建变更
func NewChange(table string, event Event, keys map[string]int64) Change {
	return Change{
		Table: table,
		Event: event,
		Keys:  keys,
		At:    time.Now().UTC(),
	}
}

// Topic 订阅条件, Column 为空表示订阅整张表
type Topic struct {
	Table  string
	Column string
	Value  int64
}

// ParseTopic 解析 "tasks" 或 "tasks:project_id=eq.5"
func ParseTopic(s string) (Topic, error) {
	table, filter, hasFilter := strings.Cut(strings.TrimSpace(s), ":")
	if table == "" {
		return Topic{}, fmt.Errorf("订阅表名为空: %q", s)
	}
	if !hasFilter {
		return Topic{Table: table}, nil
	}

	column, rest, ok := strings.Cut(filter, "=eq.")
	if !ok || column == "" {
		return Topic{}, fmt.Errorf("不支持的过滤条件: %q", filter)
	}
	value, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Topic{}, fmt.Errorf("过滤值必须为整数: %q", rest)
	}
	return Topic{Table: table, Column: column, Value: value}, nil
}

func (t Topic) String() string {
	if t.Column == "" {
		return t.Table
	}
	return fmt.Sprintf("%s:%s=eq.%d", t.Table, t.Column, t.Value)
}

// Matches 变更是否命中订阅条件
func (t Topic) Matches(c Change) bool {
	if t.Table != c.Table {
		return false
	}
	if t.Column == "" {
		return true
	}
	v, ok := c.Keys[t.Column]
	return ok && v == t.Value
}

func matchAny(topics []Topic, c Change) bool {
	for _, t := range topics {
		if t.Matches(c) {
			return true
		}
	}
	return false
}

// Publisher 发布变更
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Broker 发布与订阅
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topics ...Topic) (*Subscription, error)
	Close() error
}

// Subscription 一个订阅, ctx 结束或调用 Close 后 C 被关闭
type Subscription struct {
	C      <-chan Change
	cancel func()
}

// Close 取消订阅
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// offer 非阻塞投递
func offer(ch chan Change, c Change) bool {
	select {
	case ch <- c:
		return true
	default:
		return false
	}
}
