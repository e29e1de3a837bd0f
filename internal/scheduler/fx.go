package scheduler

import (
	"context"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

func NewScheduler(lc fx.Lifecycle, sched *Scheduler) {
	if !sched.cfg.Enabled() {
		return
	}

	var running gocron.Scheduler
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			running, err = sched.Start()
			return err
		},
		OnStop: func(context.Context) error {
			if running == nil {
				return nil
			}
			return running.Shutdown()
		},
	})
}
