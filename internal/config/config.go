package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Migrations  MigrationsConfig  `mapstructure:"migrations"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Compression CompressionConfig `mapstructure:"compression"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string   `mapstructure:"addr"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int      `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int      `mapstructure:"write_timeout_sec"`
	MaxUploadSizeMB    int      `mapstructure:"max_upload_size_mb"`
	CORSOrigins        []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	DSN                  string `mapstructure:"dsn"`
	Slaves               string `mapstructure:"slaves"`
	MaxOpenConns         int    `mapstructure:"max_open_conns"`
	MaxIdleConns         int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSec   int    `mapstructure:"conn_max_lifetime_sec"`
	ConnectRetries       int    `mapstructure:"connect_retries"`
	ConnectRetryDelaySec int    `mapstructure:"connect_retry_delay_sec"`
}

type MigrationsConfig struct {
	Path string `mapstructure:"path"`
}

type KafkaConfig struct {
	Brokers              []string `mapstructure:"brokers"`
	Topic                string   `mapstructure:"topic"`
	GroupID              string   `mapstructure:"group_id"`
	Partition            int      `mapstructure:"partition"`
	SessionTimeoutSec    int      `mapstructure:"session_timeout_sec"`
	HeartbeatIntervalSec int      `mapstructure:"heartbeat_interval_sec"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	OriginalDir   string `mapstructure:"original_dir"`
	CompressedDir string `mapstructure:"compressed_dir"`

	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`
}

// QualityConfig holds the default quality per lossy output format.
type QualityConfig struct {
	AVIF int `mapstructure:"avif"`
	JPEG int `mapstructure:"jpeg"`
	JXL  int `mapstructure:"jxl"`
	WebP int `mapstructure:"webp"`
	GIF  int `mapstructure:"gif"`
}

type CompressionConfig struct {
	Quality            QualityConfig `mapstructure:"quality"`
	AVIFEffort         int           `mapstructure:"avif_effort"`
	GifsiclePath       string        `mapstructure:"gifsicle_path"`
	GifsicleTimeoutSec int           `mapstructure:"gifsicle_timeout_sec"`
	WarmUp             bool          `mapstructure:"warm_up"`
	SupportedFormats   []string      `mapstructure:"supported_formats"`
	PreviewMaxWidth    int           `mapstructure:"preview_max_width"`
	PreviewMaxHeight   int           `mapstructure:"preview_max_height"`
	// StaleJobSec is how long a job may sit in queued or processing before
	// it can be requeued.
	StaleJobSec          int `mapstructure:"stale_job_sec"`
	ReadinessIntervalSec int `mapstructure:"readiness_interval_sec"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Apply sets the global log level of the zlog logger.
func (c LoggingConfig) Apply() error {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// DefaultQuality returns the configured quality for an output format. PNG is
// lossless and always reports 100.
func (c CompressionConfig) DefaultQuality(f domain.Format) int {
	switch f {
	case domain.FormatAVIF:
		return c.Quality.AVIF
	case domain.FormatJPEG:
		return c.Quality.JPEG
	case domain.FormatJXL:
		return c.Quality.JXL
	case domain.FormatWebP:
		return c.Quality.WebP
	case domain.FormatGIF:
		return c.Quality.GIF
	default:
		return 100
	}
}

func (c CompressionConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleJobSec) * time.Second
}

// ReadinessInterval is how often the worker reports codec readiness.
func (c CompressionConfig) ReadinessInterval() time.Duration {
	return time.Duration(c.ReadinessIntervalSec) * time.Second
}

func Load(path string) (*Config, error) {
	cfg := config.New()

	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		} else {
			return nil, fmt.Errorf("config.yaml not found")
		}
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = ""
	}

	if err := cfg.Load(configPath, envPath, "APP"); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	if err := cfg.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(appConfig)

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("storage_type", appConfig.Storage.Type).
		Str("original_dir", appConfig.Storage.OriginalDir).
		Str("compressed_dir", appConfig.Storage.CompressedDir).
		Strs("supported_formats", appConfig.Compression.SupportedFormats).
		Int("avif_effort", appConfig.Compression.AVIFEffort).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func applyDefaults(cfg *Config) {
	q := &cfg.Compression.Quality
	if q.AVIF <= 0 {
		q.AVIF = 50
	}
	if q.JPEG <= 0 {
		q.JPEG = 75
	}
	if q.JXL <= 0 {
		q.JXL = 75
	}
	if q.WebP <= 0 {
		q.WebP = 75
	}
	if q.GIF <= 0 {
		q.GIF = 75
	}
	if cfg.Compression.AVIFEffort <= 0 {
		cfg.Compression.AVIFEffort = 4
	}
	if cfg.Compression.GifsiclePath == "" {
		cfg.Compression.GifsiclePath = "gifsicle"
	}
	if cfg.Compression.GifsicleTimeoutSec <= 0 {
		cfg.Compression.GifsicleTimeoutSec = 30
	}
	if cfg.Compression.PreviewMaxWidth <= 0 {
		cfg.Compression.PreviewMaxWidth = 1024
	}
	if cfg.Compression.PreviewMaxHeight <= 0 {
		cfg.Compression.PreviewMaxHeight = 1024
	}
	if cfg.Compression.StaleJobSec <= 0 {
		cfg.Compression.StaleJobSec = 600
	}
	if cfg.Compression.ReadinessIntervalSec <= 0 {
		cfg.Compression.ReadinessIntervalSec = 15
	}
	if len(cfg.Compression.SupportedFormats) == 0 {
		for _, f := range domain.AllFormats() {
			cfg.Compression.SupportedFormats = append(cfg.Compression.SupportedFormats, f.String())
		}
	}
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}
	if cfg.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb must be positive")
	}

	// Database
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if cfg.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must be non-negative")
	}

	// Migrations
	if cfg.Migrations.Path == "" {
		return fmt.Errorf("migrations.path is required")
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must contain at least one broker")
	}
	if cfg.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required")
	}
	if cfg.Kafka.GroupID == "" {
		return fmt.Errorf("kafka.group_id is required")
	}

	// Storage
	if cfg.Storage.Type == "" {
		return fmt.Errorf("storage.type is required (local|s3)")
	}
	if cfg.Storage.Type != "local" && cfg.Storage.Type != "s3" {
		return fmt.Errorf("storage.type must be 'local' or 's3'")
	}
	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath == "" {
		return fmt.Errorf("storage.local_path is required for local storage")
	}
	if cfg.Storage.Type == "s3" {
		if cfg.Storage.S3Endpoint == "" {
			return fmt.Errorf("storage.s3_endpoint is required for s3 storage")
		}
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for s3 storage")
		}
		if cfg.Storage.S3AccessKey == "" || cfg.Storage.S3SecretKey == "" {
			return fmt.Errorf("storage.s3_access_key and storage.s3_secret_key are required for s3 storage")
		}
	}

	// Compression
	q := cfg.Compression.Quality
	for name, v := range map[string]int{"avif": q.AVIF, "jpeg": q.JPEG, "jxl": q.JXL, "webp": q.WebP, "gif": q.GIF} {
		if v < 0 || v > 100 {
			return fmt.Errorf("compression.quality.%s must be within 0..100", name)
		}
	}
	if cfg.Compression.AVIFEffort > 10 {
		return fmt.Errorf("compression.avif_effort must be within 0..10")
	}
	for _, f := range cfg.Compression.SupportedFormats {
		if _, ok := domain.ParseFormat(f); !ok {
			return fmt.Errorf("compression.supported_formats: unknown format %q", f)
		}
	}

	if cfg.Logging.Level == "" {
		return fmt.Errorf("logging.level is required")
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}
