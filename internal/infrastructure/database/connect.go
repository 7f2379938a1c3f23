package database

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/imagecompressor/internal/config"
	"github.com/yokitheyo/imagecompressor/internal/helpers"
)

// Connect opens the master/slave pool described by cfg, retrying until the
// master answers a ping or the attempts run out.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*dbpg.DB, error) {
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSec) * time.Second,
	}
	slaves := helpers.SplitAndTrim(cfg.Slaves, ",")
	return ConnectWithRetries(ctx, cfg.DSN, slaves, opts, cfg.ConnectRetries, cfg.ConnectRetryDelaySec)
}

func ConnectWithRetries(ctx context.Context, masterDSN string, slaves []string, opts *dbpg.Options, retries int, delaySec int) (*dbpg.DB, error) {
	if retries <= 0 {
		retries = 1
	}
	if delaySec <= 0 {
		delaySec = 1
	}

	var database *dbpg.DB
	var err error

	for i := 0; i < retries; i++ {
		zlog.Logger.Info().Msgf("Database connection attempt %d/%d", i+1, retries)

		database, err = dbpg.New(masterDSN, slaves, opts)
		if err != nil {
			zlog.Logger.Warn().Err(err).Msgf("dbpg.New failed on attempt %d/%d", i+1, retries)
			database = nil
		} else if database.Master == nil {
			err = fmt.Errorf("database.Master is nil")
			zlog.Logger.Warn().Err(err).Msgf("nil master connection on attempt %d/%d", i+1, retries)
			database = nil
		} else if pingErr := database.Master.PingContext(ctx); pingErr != nil {
			err = pingErr
			zlog.Logger.Warn().Err(pingErr).Msgf("db ping failed on attempt %d/%d", i+1, retries)
			Close(database)
			database = nil
		} else {
			zlog.Logger.Info().Int("slaves", len(slaves)).Msg("Database connection established successfully")
			return database, nil
		}

		if i < retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(delaySec) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d retries: %w", retries, err)
}

// Close releases the master and every slave connection.
func Close(database *dbpg.DB) {
	if database == nil {
		return
	}
	if database.Master != nil {
		if err := database.Master.Close(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to close master connection")
		}
	}
	for _, s := range database.Slaves {
		if s != nil {
			s.Close()
		}
	}
}
