package database

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// RunMigrations applies every pending goose migration in dir to the master.
func RunMigrations(ctx context.Context, database *dbpg.DB, dir string) error {
	if database == nil || database.Master == nil {
		return fmt.Errorf("run migrations: no master connection")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, database.Master, dir); err != nil {
		return fmt.Errorf("apply migrations from %s: %w", dir, err)
	}

	version, err := goose.GetDBVersionContext(ctx, database.Master)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to read schema version")
		return nil
	}
	zlog.Logger.Info().Int64("version", version).Str("dir", dir).Msg("migrations applied")
	return nil
}
