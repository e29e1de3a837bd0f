package migration

import (
	"github.com/smallbiznis/bonos/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module applies embedded migrations on startup for postgres deployments.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "" && cfg.DBType != "postgres" {
			log.Warn("skipping embedded migrations", zap.String("db_type", cfg.DBType))
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
