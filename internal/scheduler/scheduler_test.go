package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/config"
)

type window struct{ from, to time.Time }

type fakeSweeper struct {
	calls []window
	err   error
}

func (f *fakeSweeper) SweepExpired(_ context.Context, from, to time.Time) (int, error) {
	f.calls = append(f.calls, window{from, to})
	return 1, f.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestSweepInvitesAdvancesWindow(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clk := &clock{t: start}
	sweeper := &fakeSweeper{}
	s := newScheduler(sweeper, zap.NewNop(), clk.now)

	clk.t = start.Add(5 * time.Minute)
	_, err := s.SweepInvites(context.Background())
	require.NoError(t, err)

	clk.t = start.Add(10 * time.Minute)
	_, err = s.SweepInvites(context.Background())
	require.NoError(t, err)

	require.Len(t, sweeper.calls, 2)
	assert.Equal(t, start, sweeper.calls[0].from)
	assert.Equal(t, sweeper.calls[0].to, sweeper.calls[1].from)
	assert.Equal(t, start.Add(10*time.Minute), sweeper.calls[1].to)
}

func TestSweepInvitesKeepsWindowOnFailure(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clk := &clock{t: start}
	sweeper := &fakeSweeper{err: errors.New("db down")}
	s := newScheduler(sweeper, zap.NewNop(), clk.now)

	clk.t = start.Add(5 * time.Minute)
	_, err := s.SweepInvites(context.Background())
	require.Error(t, err)

	sweeper.err = nil
	clk.t = start.Add(10 * time.Minute)
	_, err = s.SweepInvites(context.Background())
	require.NoError(t, err)

	assert.Equal(t, start, sweeper.calls[1].from)
}

func TestStartRejectsBadCron(t *testing.T) {
	s := newScheduler(&fakeSweeper{}, zap.NewNop(), time.Now)
	err := s.Start(&config.SchedulerConfig{InviteSweepCron: "not a cron"})
	assert.Error(t, err)
}
