package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/migration"
	"github.com/smallbiznis/bonos/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var poolSize int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo mayorista, customer and pool allocations",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&poolSize, "pool", seed.DefaultPoolSize, "available count for each pool allocation")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	var (
		conn    *gorm.DB
		node    *snowflake.Node
		catalog catalogdomain.Service
	)
	app := fx.New(
		infrastructure(),
		migration.Module,
		domain(),
		fx.Populate(&conn, &node, &catalog),
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

	res, err := seed.EnsureDemoData(ctx, conn, node, catalog.List(ctx), poolSize)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "mayorista=%s customer=%s allocations=%d\n", res.MayoristaID, res.CustomerID, res.Allocations)
	return nil
}
