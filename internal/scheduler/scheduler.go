package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/smallbiznis/bonos/internal/authorization"
	"github.com/smallbiznis/bonos/internal/clock"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	obscontext "github.com/smallbiznis/bonos/internal/observability/context"
	obslogger "github.com/smallbiznis/bonos/internal/observability/logger"
	"github.com/smallbiznis/bonos/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	jobExpirySweep = "voucher_expiry_sweep"
	lockExpiry     = "bonos:lock:" + jobExpirySweep
	systemUserID   = "scheduler"
)

var ErrSweepDisabled = errors.New("expiry sweep disabled")

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Lifecycle lifecycledomain.Service
	Locker    *ratelimit.Locker `optional:"true"`
	Config    Config            `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	lifecycle lifecycledomain.Service
	locker    *ratelimit.Locker
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		lifecycle: p.Lifecycle,
		locker:    p.Locker,
	}
}

// SweepOnce expires open vouchers older than the configured TTL. When a
// redis lock is available only one instance sweeps at a time.
func (s *Scheduler) SweepOnce(parent context.Context) (lifecycledomain.ExpireResult, error) {
	if !s.cfg.Enabled() {
		return lifecycledomain.ExpireResult{}, ErrSweepDisabled
	}
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()
	ctx = obscontext.WithActor(ctx, string(authorization.RoleSystem), systemUserID)
	log := obslogger.WithContext(ctx, s.log).With(zap.String("job", jobExpirySweep))

	if s.locker.Enabled() {
		token, ok, err := s.locker.TryLock(ctx, lockExpiry, s.cfg.LockTTL)
		if err != nil {
			log.Warn("sweep lock unavailable", zap.Error(err))
			return lifecycledomain.ExpireResult{}, err
		}
		if !ok {
			log.Debug("sweep already running elsewhere")
			return lifecycledomain.ExpireResult{}, nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lockExpiry, token); err != nil {
				log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	cutoff := start.Add(-s.cfg.TTL)
	actor := lifecycledomain.Actor{Role: authorization.RoleSystem, UserID: systemUserID}
	res, err := s.lifecycle.ExpireBefore(ctx, actor, cutoff)
	if err != nil {
		log.Error("expiry sweep failed", zap.Error(err))
		return lifecycledomain.ExpireResult{}, err
	}
	log.Info("expiry sweep finished",
		zap.Time("cutoff", res.Cutoff),
		zap.Int64("expired", res.Expired),
		zap.Duration("duration", s.clock.Now().Sub(start)),
	)
	return res, nil
}

// Start registers the sweep with gocron. The returned scheduler must be
// shut down by the caller.
func (s *Scheduler) Start() (gocron.Scheduler, error) {
	if !s.cfg.Enabled() {
		return nil, ErrSweepDisabled
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			_, _ = s.SweepOnce(context.Background())
		}),
		gocron.WithName(jobExpirySweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	sched.Start()
	s.log.Info("expiry sweep scheduled",
		zap.Duration("ttl", s.cfg.TTL),
		zap.Duration("interval", s.cfg.Interval),
	)
	return sched, nil
}

func (s *Scheduler) TTL() time.Duration {
	return s.cfg.TTL
}
