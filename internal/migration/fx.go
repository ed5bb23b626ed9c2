package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.Environment == "development" {
			return seed.EnsureDevFixtures(conn)
		}
		return nil
	}),
)
