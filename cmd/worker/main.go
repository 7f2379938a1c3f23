package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/config"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/codec"
	infradatabase "github.com/yokitheyo/imagecompressor/internal/infrastructure/database"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/gifsicle"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/kafka"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/processor"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/storage"
	"github.com/yokitheyo/imagecompressor/internal/repository/postgres"
	"github.com/yokitheyo/imagecompressor/internal/retry"
	"github.com/yokitheyo/imagecompressor/internal/usecase"
	"github.com/yokitheyo/imagecompressor/internal/worker"
)

func newDispatcher(cfg config.CompressionConfig) *codec.Dispatcher {
	optimizer := gifsicle.New(cfg.GifsiclePath, time.Duration(cfg.GifsicleTimeoutSec)*time.Second)
	if !optimizer.Available() {
		zlog.Logger.Warn().
			Str("binary", cfg.GifsiclePath).
			Msg("gifsicle not found, GIF output will not be optimized")
		return codec.NewDefaultDispatcher(nil, cfg.AVIFEffort)
	}
	return codec.NewDefaultDispatcher(optimizer, cfg.AVIFEffort)
}

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Image Compressor Worker")

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
		zlog.Logger.Warn().Err(err).Msg("Migrations warning (might be already applied)")
	}

	storageService, err := storage.New(&cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	dispatcher := newDispatcher(cfg.Compression)
	if cfg.Compression.WarmUp {
		if err := dispatcher.WarmUp(ctx); err != nil {
			zlog.Logger.Warn().Err(err).Msg("codec warm-up incomplete, failed formats initialize on first use")
		}
	}

	repo := postgres.NewImageRepository(database, retry.DefaultStrategy)
	previewer := processor.NewPreviewRenderer(cfg.Compression.PreviewMaxWidth, cfg.Compression.PreviewMaxHeight)
	compressUsecase := usecase.NewCompressUsecase(repo, storageService, dispatcher, previewer)
	imageWorker := worker.NewImageWorker(compressUsecase)

	kafkaConsumer := kafka.NewConsumer(&cfg.Kafka, imageWorker.HandleCompressionTask)

	reporter := worker.NewFormatReporter(
		dispatcher,
		postgres.NewFormatStatusRepository(database, retry.DefaultStrategy),
		cfg.Compression.ReadinessInterval(),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := kafkaConsumer.Start(ctx); err != nil {
			zlog.Logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		zlog.Logger.Warn().Msg("worker did not stop in time")
	}

	if err := kafkaConsumer.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("closing kafka consumer failed")
	}

	zlog.Logger.Info().Msg("Worker shutdown complete")
}
