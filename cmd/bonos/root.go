package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/allocation"
	"github.com/smallbiznis/bonos/internal/audit"
	"github.com/smallbiznis/bonos/internal/authorization"
	"github.com/smallbiznis/bonos/internal/catalog"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/config"
	"github.com/smallbiznis/bonos/internal/dispatch"
	"github.com/smallbiznis/bonos/internal/lifecycle"
	"github.com/smallbiznis/bonos/internal/observability"
	"github.com/smallbiznis/bonos/internal/partner"
	"github.com/smallbiznis/bonos/internal/providers"
	"github.com/smallbiznis/bonos/internal/qrtoken"
	"github.com/smallbiznis/bonos/internal/ratelimit"
	"github.com/smallbiznis/bonos/internal/voucher"
	"github.com/smallbiznis/bonos/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Use:   "bonos",
	Short: "Bonus voucher lifecycle engine",
	Long:  `Tracks tyre bonus vouchers from issuance to redemption against wholesaler allocations.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// infrastructure is shared by every command that touches the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
	)
}

// domain wires the voucher lifecycle and its collaborators.
func domain() fx.Option {
	return fx.Options(
		authorization.Module,
		audit.Module,
		catalog.Module,
		partner.Module,
		allocation.Module,
		voucher.Module,
		qrtoken.Module,
		providers.Module,
		dispatch.Module,
		ratelimit.Module,
		lifecycle.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
