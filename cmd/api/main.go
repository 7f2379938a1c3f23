package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/config"
	httpHandler "github.com/yokitheyo/imagecompressor/internal/handler/http"
	"github.com/yokitheyo/imagecompressor/internal/handler/middleware"
	infradatabase "github.com/yokitheyo/imagecompressor/internal/infrastructure/database"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/gifsicle"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/kafka"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/storage"
	"github.com/yokitheyo/imagecompressor/internal/repository/postgres"
	"github.com/yokitheyo/imagecompressor/internal/retry"
	"github.com/yokitheyo/imagecompressor/internal/usecase"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Image Compressor API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Logging.Apply(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("keeping default log level")
	}

	database, err := infradatabase.Connect(ctx, &cfg.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database after all retries")
	}
	defer infradatabase.Close(database)

	zlog.Logger.Info().Msg("Running database migrations...")
	if err := infradatabase.RunMigrations(ctx, database, cfg.Migrations.Path); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Migrations failed")
	}

	storageService, err := storage.New(&cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	kafkaProducer := kafka.NewProducer(&cfg.Kafka)
	defer kafkaProducer.Close()

	repo := postgres.NewImageRepository(database, retry.DefaultStrategy)
	imageUsecase := usecase.NewImageUsecase(repo, storageService, kafkaProducer, cfg.Compression)

	// readiness is reported by workers; three missed reports count as down
	formatUsecase := usecase.NewFormatUsecase(
		postgres.NewFormatStatusRepository(database, retry.DefaultStrategy),
		3*cfg.Compression.ReadinessInterval(),
	)

	engine := ginext.New("api")
	engine.Use(
		middleware.ErrorHandlerMiddleware(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(cfg.Server.CORSOrigins),
	)

	engine.GET("/health", func(c *ginext.Context) {
		if err := database.Master.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, ginext.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ginext.H{
			"status":   "ok",
			"gifsicle": gifsicle.New(cfg.Compression.GifsiclePath, 0).Available(),
		})
	})

	imageHandler := httpHandler.NewImageHandler(
		imageUsecase,
		formatUsecase,
		cfg.Compression.DefaultQuality,
		cfg.Server.MaxUploadSizeMB,
	)
	imageHandler.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	zlog.Logger.Info().Msg("API shutdown complete")
}
