package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

const imageColumns = `id, original_filename, original_path, preview_path, output_path,
	mime_type, source_type, output_type, quality, original_size, compressed_size,
	width, height, status, error_message, created_at, updated_at, completed_at`

type imageRepository struct {
	db       *dbpg.DB
	strategy retry.Strategy
}

func NewImageRepository(db *dbpg.DB, strategy retry.Strategy) domain.ImageRepository {
	return &imageRepository{
		db:       db,
		strategy: strategy,
	}
}

func (r *imageRepository) Create(ctx context.Context, image *domain.ImageFile) error {
	query := `INSERT INTO images (` + imageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecWithRetry(ctx, r.strategy, query,
		image.ID,
		image.OriginalFilename,
		image.OriginalPath,
		nullString(image.PreviewPath),
		nullString(image.OutputPath),
		image.MimeType,
		image.SourceType,
		image.OutputType,
		image.Quality,
		image.OriginalSize,
		nullInt64(image.CompressedSize),
		nullInt(image.Width),
		nullInt(image.Height),
		image.Status,
		nullString(image.ErrorMessage),
		image.CreatedAt,
		image.UpdatedAt,
		image.CompletedAt,
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Msg("failed to create image")
		return fmt.Errorf("create image: %w", err)
	}

	zlog.Logger.Info().Str("image_id", image.ID).Msg("image created successfully")
	return nil
}

func (r *imageRepository) FindByID(ctx context.Context, id string) (*domain.ImageFile, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	img, err := scanImage(r.db.Master.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrImageNotFound
	}
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to find image")
		return nil, fmt.Errorf("find image: %w", err)
	}
	return img, nil
}

func (r *imageRepository) Update(ctx context.Context, image *domain.ImageFile) error {
	query := `
		UPDATE images
		SET preview_path = $2,
		    output_path = $3,
		    output_type = $4,
		    quality = $5,
		    compressed_size = $6,
		    width = $7,
		    height = $8,
		    status = $9,
		    error_message = $10,
		    completed_at = $11,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecWithRetry(ctx, r.strategy, query,
		image.ID,
		nullString(image.PreviewPath),
		nullString(image.OutputPath),
		image.OutputType,
		image.Quality,
		nullInt64(image.CompressedSize),
		nullInt(image.Width),
		nullInt(image.Height),
		image.Status,
		nullString(image.ErrorMessage),
		image.CompletedAt,
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Msg("failed to update image")
		return fmt.Errorf("update image: %w", err)
	}

	if err := expectRow(result); err != nil {
		return err
	}

	zlog.Logger.Debug().Str("image_id", image.ID).Str("status", string(image.Status)).Msg("image updated")
	return nil
}

func (r *imageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecWithRetry(ctx, r.strategy, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to delete image")
		return fmt.Errorf("delete image: %w", err)
	}

	if err := expectRow(result); err != nil {
		return err
	}

	zlog.Logger.Info().Str("image_id", id).Msg("image deleted successfully")
	return nil
}

func (r *imageRepository) FindByStatus(ctx context.Context, status domain.ProcessingStatus, limit, offset int) ([]*domain.ImageFile, error) {
	query := `SELECT ` + imageColumns + ` FROM images
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryWithRetry(ctx, r.strategy, query, status, limit, offset)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("status", string(status)).Msg("failed to find images by status")
		return nil, fmt.Errorf("find images by status: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

func (r *imageRepository) List(ctx context.Context, limit, offset int) ([]*domain.ImageFile, error) {
	query := `SELECT ` + imageColumns + ` FROM images
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryWithRetry(ctx, r.strategy, query, limit, offset)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list images")
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

func (r *imageRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ProcessingStatus, errMsg string) error {
	query := `
		UPDATE images
		SET status = $3,
		    error_message = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.ExecWithRetry(ctx, r.strategy, query, id, from, to, nullString(errMsg))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to update status")
		return fmt.Errorf("update status: %w", err)
	}

	if err := expectRow(result); err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			return fmt.Errorf("%w: %s is not %s", domain.ErrStatusConflict, id, from)
		}
		return err
	}

	zlog.Logger.Debug().
		Str("image_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("image status updated")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*domain.ImageFile, error) {
	var img domain.ImageFile
	var previewPath, outputPath, errorMsg sql.NullString
	var compressedSize sql.NullInt64
	var width, height sql.NullInt32
	var completedAt sql.NullTime

	err := row.Scan(
		&img.ID,
		&img.OriginalFilename,
		&img.OriginalPath,
		&previewPath,
		&outputPath,
		&img.MimeType,
		&img.SourceType,
		&img.OutputType,
		&img.Quality,
		&img.OriginalSize,
		&compressedSize,
		&width,
		&height,
		&img.Status,
		&errorMsg,
		&img.CreatedAt,
		&img.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	img.PreviewPath = previewPath.String
	img.OutputPath = outputPath.String
	img.ErrorMessage = errorMsg.String
	img.CompressedSize = compressedSize.Int64
	img.Width = int(width.Int32)
	img.Height = int(height.Int32)
	if completedAt.Valid {
		img.CompletedAt = &completedAt.Time
	}

	return &img, nil
}

func scanImages(rows *sql.Rows) ([]*domain.ImageFile, error) {
	images := make([]*domain.ImageFile, 0)

	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return images, nil
}

func expectRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(i), Valid: i != 0}
}

func nullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}
