package migration

import (
	"github.com/groundstone/terravest/internal/config"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	investmentdomain "github.com/groundstone/terravest/internal/investment/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"github.com/groundstone/terravest/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite has no golang-migrate driver wired here; local
			// development relies on AutoMigrate instead.
			if err := conn.AutoMigrate(
				&identitydomain.User{},
				&projectdomain.Project{},
				&investmentdomain.Investment{},
				&investmentdomain.Posting{},
			); err != nil {
				return err
			}
		}

		if cfg.Environment != "production" {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
