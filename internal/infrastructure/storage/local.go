package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/config"
)

const objectFileMode os.FileMode = 0o644

type localStorage struct {
	basePath      string
	originalDir   string
	compressedDir string
}

func NewLocalStorage(cfg *config.StorageConfig) (Storage, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("LocalPath is empty, set storage.local_path in config or env")
	}
	originalDir, compressedDir := withDefaultDirs(cfg)

	s := &localStorage{
		basePath:      cfg.LocalPath,
		originalDir:   originalDir,
		compressedDir: compressedDir,
	}

	for _, dir := range []string{originalDir, compressedDir} {
		if err := os.MkdirAll(filepath.Join(s.basePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return s, nil
}

func (s *localStorage) SaveOriginal(ctx context.Context, filename string, reader io.Reader) (string, error) {
	return s.saveFile(ctx, s.originalDir, filename, reader)
}

func (s *localStorage) SaveCompressed(ctx context.Context, filename string, reader io.Reader) (string, error) {
	return s.saveFile(ctx, s.compressedDir, filename, reader)
}

func (s *localStorage) saveFile(ctx context.Context, dir, filename string, reader io.Reader) (string, error) {
	if reader == nil {
		zlog.Logger.Error().Str("filename", filename).Msg("reader is nil")
		return "", ErrNilReader
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := cleanKey(path.Join(dir, filename))
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	// write to a temp file first so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to create file")
		return "", fmt.Errorf("create file %s: %w", fullPath, err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, reader)
	if err == nil {
		// CreateTemp uses 0600; stored objects are world readable like os.Create
		err = tmp.Chmod(objectFileMode)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to write file")
		return "", fmt.Errorf("write file %s: %w", fullPath, err)
	}
	if written == 0 {
		zlog.Logger.Error().Str("path", fullPath).Msg("no bytes written to file")
		return "", fmt.Errorf("no bytes written to file %s", fullPath)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("move file into place %s: %w", fullPath, err)
	}

	zlog.Logger.Info().
		Str("path", key).
		Str("content_type", contentTypeFor(filename)).
		Int64("bytes", written).
		Msg("file saved successfully")

	return key, nil
}

func (s *localStorage) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zlog.Logger.Warn().Str("path", fullPath).Msg("file not found")
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to open file")
		return nil, fmt.Errorf("open file %s: %w", fullPath, err)
	}

	return file, nil
}

func (s *localStorage) Delete(ctx context.Context, p string) error {
	if p == "" {
		return nil
	}
	key, err := cleanKey(p)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zlog.Logger.Warn().Str("path", fullPath).Msg("file not found, skipping delete")
			return nil
		}
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to delete file")
		return fmt.Errorf("delete file %s: %w", fullPath, err)
	}

	zlog.Logger.Info().Str("path", key).Msg("file deleted successfully")
	return nil
}

func (s *localStorage) DeleteAll(ctx context.Context, paths ...string) error {
	return deleteAll(ctx, s, paths)
}
