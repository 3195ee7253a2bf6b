package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/db"
	"github.com/angelmondragon/orderbridge/pkg/logger"
)

// ShouldAutoRun reports whether the session schema is applied on boot. SQLite
// stores are local by nature and always get the schema; Postgres only in dev
// with ORDERBRIDGE_AUTO_MIGRATE set.
func ShouldAutoRun(cfg *config.Config, driver string) bool {
	if cfg == nil {
		return false
	}
	if driver == db.DriverSQLite {
		return true
	}
	return cfg.App.IsDev() && cfg.App.AutoMigrate
}

// MaybeRunDev applies pending session-store migrations when ShouldAutoRun allows it.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil || !ShouldAutoRun(cfg, client.Driver()) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})
	logg.Info(ctx, "migrate.autorun.start")
	if err := Run(ctx, sqlDB, client.Driver(), "up"); err != nil {
		return fmt.Errorf("applying session schema: %w", err)
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
