package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"buildbuddy-admin/internal/core/scope"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Log
	use(zap.New(core))
	t.Cleanup(func() { use(prev) })
	return logs
}

func TestCtxCarriesRequestAndScopeFields(t *testing.T) {
	logs := observe(t)

	ctx := WithFields(context.Background(), RequestFields("req-1")...)
	ctx = WithFields(ctx, ScopeFields(&scope.Scope{
		UserID:      7,
		Memberships: []scope.Membership{{OrgID: 3, Role: "manager"}},
		ActiveOrgID: 3,
		HasActive:   true,
	})...)
	Ctx(ctx, nil).Info("新建排班")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, int64(3), fields["active_org"])
	assert.Equal(t, "manager", fields["org_role"])
}

func TestScopeFieldsWithoutActiveOrg(t *testing.T) {
	fields := ScopeFields(&scope.Scope{UserID: 9})
	require.Len(t, fields, 1)
	assert.Equal(t, "user_id", fields[0].Key)
	assert.Nil(t, ScopeFields(nil))

	ctx := context.Background()
	assert.Equal(t, ctx, WithFields(ctx))
	assert.Empty(t, Fields(ctx))
}

func TestGormWriterLevels(t *testing.T) {
	logs := observe(t)
	w := GormWriter()

	w.Printf("%s\n[%.3fms] [rows:%v] %s", "repo.go:12", 1.5, 1, "SELECT 1")
	w.Printf("%s %s\n[%.3fms] [rows:%v] %s", "repo.go:12", "SLOW SQL >= 200ms", 250.0, 1, "SELECT pg_sleep(1)")
	w.Printf("%s\n[error] failed to initialize database, got error %v", "db.go:30", "dial tcp")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Contains(t, entries[0].Message, "SELECT 1")
}
