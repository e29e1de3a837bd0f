package main

import (
	"github.com/smallbiznis/bonos/internal/migration"
	"github.com/smallbiznis/bonos/internal/scheduler"
	"github.com/smallbiznis/bonos/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the expiry sweep",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			infrastructure(),
			migration.Module,
			domain(),
			scheduler.Module,
			server.Module,
		).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
