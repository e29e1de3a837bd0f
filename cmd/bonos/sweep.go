package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/bonos/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire open vouchers older than VOUCHER_EXPIRY_TTL once and exit",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	var sched *scheduler.Scheduler
	app := fx.New(
		infrastructure(),
		domain(),
		fx.Provide(scheduler.ProvideConfig, scheduler.New),
		fx.Populate(&sched),
		fx.NopLogger,
	)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.WithoutCancel(ctx)) }()

	res, err := sched.SweepOnce(ctx)
	if errors.Is(err, scheduler.ErrSweepDisabled) {
		return fmt.Errorf("%w: set VOUCHER_EXPIRY_TTL", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cutoff=%s expired=%d\n", res.Cutoff.Format(time.RFC3339), res.Expired)
	return nil
}
