package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/config"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
	ErrNilReader      = errors.New("reader is nil")
)

// Storage keeps uploaded originals and compressed results apart. Returned
// paths are relative keys that are passed back to Open and Delete unchanged.
type Storage interface {
	SaveOriginal(ctx context.Context, filename string, reader io.Reader) (string, error)
	SaveCompressed(ctx context.Context, filename string, reader io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	DeleteAll(ctx context.Context, paths ...string) error
}

func New(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local":
		zlog.Logger.Info().Msg("Initializing local storage")
		return NewLocalStorage(cfg)
	case "s3":
		zlog.Logger.Info().Msg("Initializing S3 storage")
		return NewS3Storage(cfg)
	default:
		zlog.Logger.Error().Str("type", cfg.Type).Msg("Unsupported storage type, use 'local' or 's3'")
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func withDefaultDirs(cfg *config.StorageConfig) (string, string) {
	originalDir, compressedDir := cfg.OriginalDir, cfg.CompressedDir
	if originalDir == "" {
		originalDir = "original"
	}
	if compressedDir == "" {
		compressedDir = "compressed"
	}
	return originalDir, compressedDir
}

// cleanKey normalizes an object key and refuses anything that escapes the
// storage root.
func cleanKey(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	key := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if strings.HasPrefix(key, "/") || key == "." || key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return key, nil
}

// contentTypeFor guesses the MIME type of a stored object from its extension.
func contentTypeFor(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if f, ok := domain.ParseFormat(ext); ok {
		return f.MimeType()
	}
	return "application/octet-stream"
}

func deleteAll(ctx context.Context, s Storage, paths []string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.Delete(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
