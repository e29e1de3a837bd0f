package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bonos/internal/authorization"
	"github.com/smallbiznis/bonos/internal/clock"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type expireCall struct {
	actor  lifecycledomain.Actor
	cutoff time.Time
}

// fakeLifecycle records ExpireBefore calls; other operations are unused here.
type fakeLifecycle struct {
	lifecycledomain.Service
	calls []expireCall
}

func (f *fakeLifecycle) ExpireBefore(ctx context.Context, actor lifecycledomain.Actor, cutoff time.Time) (lifecycledomain.ExpireResult, error) {
	f.calls = append(f.calls, expireCall{actor: actor, cutoff: cutoff})
	return lifecycledomain.ExpireResult{Cutoff: cutoff, Expired: 3}, nil
}

func TestSweepOnceUsesTTLCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lifecycle := &fakeLifecycle{}
	s := New(Params{
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(now),
		Lifecycle: lifecycle,
		Config:    Config{TTL: 72 * time.Hour},
	})

	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Expired)
	require.Len(t, lifecycle.calls, 1)
	assert.Equal(t, now.Add(-72*time.Hour), lifecycle.calls[0].cutoff)
	assert.Equal(t, authorization.RoleSystem, lifecycle.calls[0].actor.Role)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	s := New(Params{
		Log:       zap.NewNop(),
		Clock:     clock.SystemClock{},
		Lifecycle: &fakeLifecycle{},
	})
	_, err := s.SweepOnce(context.Background())
	assert.ErrorIs(t, err, ErrSweepDisabled)

	_, err = s.Start()
	assert.ErrorIs(t, err, ErrSweepDisabled)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{TTL: time.Hour}.withDefaults()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
}
