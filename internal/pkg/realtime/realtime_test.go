package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/config"
)

func TestParseTopic(t *testing.T) {
	topic, err := ParseTopic("tasks:project_id=eq.5")
	require.NoError(t, err)
	assert.Equal(t, Topic{Table: "tasks", Column: "project_id", Value: 5}, topic)
	assert.Equal(t, "tasks:project_id=eq.5", topic.String())

	topic, err = ParseTopic("organizations")
	require.NoError(t, err)
	assert.Equal(t, Topic{Table: "organizations"}, topic)

	for _, bad := range []string{"", ":project_id=eq.1", "tasks:project_id=gt.1", "tasks:project_id=eq.x"} {
		_, err := ParseTopic(bad)
		assert.Error(t, err, bad)
	}
}

func TestTopicMatches(t *testing.T) {
	c := NewChange("project_phases", EventUpdate, map[string]int64{"id": 3, "project_id": 7})

	assert.True(t, Topic{Table: "project_phases"}.Matches(c))
	assert.True(t, Topic{Table: "project_phases", Column: "project_id", Value: 7}.Matches(c))
	assert.False(t, Topic{Table: "project_phases", Column: "project_id", Value: 8}.Matches(c))
	assert.False(t, Topic{Table: "tasks", Column: "project_id", Value: 7}.Matches(c))
	assert.False(t, Topic{Table: "project_phases", Column: "phase_id", Value: 7}.Matches(c))
}

func receive(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case c, ok := <-sub.C:
		require.True(t, ok, "订阅已关闭")
		return c
	case <-time.After(time.Second):
		t.Fatal("超时未收到变更")
	}
	return Change{}
}

func TestMemoryBrokerDeliversMatchingChanges(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, Topic{Table: "tasks", Column: "project_id", Value: 1})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish(ctx, NewChange("tasks", EventInsert, map[string]int64{"id": 9, "project_id": 2})))
	require.NoError(t, b.Publish(ctx, NewChange("tasks", EventInsert, map[string]int64{"id": 10, "project_id": 1})))

	got := receive(t, sub)
	assert.Equal(t, int64(10), got.Keys["id"])
	assert.Len(t, sub.C, 0)
}

func TestMemoryBrokerFullBufferKeepsPendingRefresh(t *testing.T) {
	b := NewMemoryBroker(1)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, Topic{Table: "tasks"})
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, NewChange("tasks", EventUpdate, map[string]int64{"id": int64(i)})))
	}

	// 至少收到一次刷新, 发布方没有阻塞
	receive(t, sub)
}

func TestMemoryBrokerUnsubscribeOnContextCancel(t *testing.T) {
	b := NewMemoryBroker(1)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, Topic{Table: "tasks"})
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())

	cancel()
	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestMemoryBrokerClose(t *testing.T) {
	b := NewMemoryBroker(1)
	sub, err := b.Subscribe(context.Background(), Topic{Table: "tasks"})
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := <-sub.C
	assert.False(t, ok)

	assert.ErrorIs(t, b.Publish(context.Background(), NewChange("tasks", EventDelete, nil)), ErrBrokerClosed)
	_, err = b.Subscribe(context.Background(), Topic{Table: "tasks"})
	assert.ErrorIs(t, err, ErrBrokerClosed)
	sub.Close()
}

func TestRedisBrokerPublish(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	b := NewRedisBroker(rdb, "bb:", 4, zap.NewNop())

	c := Change{Table: "project_invites", Event: EventInsert, Keys: map[string]int64{"id": 1, "project_id": 3}, At: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	payload, err := json.Marshal(c)
	require.NoError(t, err)

	mock.ExpectPublish("bb:project_invites", payload).SetVal(1)

	require.NoError(t, b.Publish(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBrokerPublishError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	b := NewRedisBroker(rdb, "bb:", 4, zap.NewNop())

	c := Change{Table: "tasks", Event: EventDelete, Keys: map[string]int64{"id": 1}}
	payload, err := json.Marshal(c)
	require.NoError(t, err)
	mock.ExpectPublish("bb:tasks", payload).SetErr(assert.AnError)

	assert.Error(t, b.Publish(context.Background(), c))
}

func TestNewBrokerDrivers(t *testing.T) {
	b, err := NewBroker(&config.RealtimeConfig{Driver: "memory", Buffer: 2}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryBroker{}, b)

	_, err = NewBroker(&config.RealtimeConfig{Driver: "kafka"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewBroker(&config.RealtimeConfig{Driver: "redis", RedisURL: "::not a url"}, zap.NewNop())
	assert.Error(t, err)
}
