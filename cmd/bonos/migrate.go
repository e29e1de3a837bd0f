package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/bonos/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	rollbackSteps int
	showVersion   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply, roll back or inspect database migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&rollbackSteps, "rollback", 0, "number of migrations to roll back")
	migrateCmd.Flags().BoolVar(&showVersion, "version", false, "print the current schema version")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	var (
		conn *gorm.DB
		log  *zap.Logger
	)
	app := fx.New(
		infrastructure(),
		fx.Populate(&conn, &log),
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

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	switch {
	case showVersion:
		version, dirty, err := migration.Version(sqlDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
		return nil
	case rollbackSteps > 0:
		if err := migration.Rollback(sqlDB, rollbackSteps); err != nil {
			return err
		}
		log.Info("migrations rolled back", zap.Int("steps", rollbackSteps))
		return nil
	default:
		if err := migration.RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	}
}
