package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/helpers"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/storage"
)

// ImageCodec decodes and encodes buffers by format tag.
type ImageCodec interface {
	Decode(ctx context.Context, sourceType string, data []byte) (*image.NRGBA, error)
	Encode(ctx context.Context, outputType string, img image.Image, opts domain.CompressionOptions) ([]byte, error)
}

// Previewer scales a raster down for display.
type Previewer interface {
	Render(img image.Image) image.Image
}

type CompressUsecase struct {
	repo      domain.ImageRepository
	storage   storage.Storage
	codec     ImageCodec
	previewer Previewer
}

func NewCompressUsecase(
	repo domain.ImageRepository,
	storage storage.Storage,
	codec ImageCodec,
	previewer Previewer,
) *CompressUsecase {
	return &CompressUsecase{
		repo:      repo,
		storage:   storage,
		codec:     codec,
		previewer: previewer,
	}
}

// needsPreview lists sources that browsers commonly cannot render.
func needsPreview(f domain.Format) bool {
	return f == domain.FormatJXL || f == domain.FormatAVIF
}

func (u *CompressUsecase) CompressImage(ctx context.Context, imageID string) error {
	image, err := u.repo.FindByID(ctx, imageID)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", imageID).Msg("failed to find image")
		return fmt.Errorf("find image: %w", err)
	}

	if !image.CanBeProcessed() {
		zlog.Logger.Warn().
			Str("image_id", imageID).
			Str("status", string(image.Status)).
			Msg("image cannot be compressed in current status")
		return nil
	}

	image.MarkAsProcessing()
	if err := u.repo.Update(ctx, image); err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", imageID).Msg("failed to update status to processing")
		return fmt.Errorf("update status to processing: %w", err)
	}

	zlog.Logger.Info().
		Str("image_id", imageID).
		Str("source_type", image.SourceType.String()).
		Str("output_type", image.OutputType.String()).
		Int("quality", image.Quality).
		Msg("starting image compression")

	data, err := u.readOriginal(ctx, image.OriginalPath)
	if err != nil {
		return u.fail(ctx, image, "failed to read original file", err)
	}

	raster, err := u.codec.Decode(ctx, image.SourceType.String(), data)
	if err != nil {
		return u.fail(ctx, image, errorMessage(err), err)
	}
	width, height := raster.Bounds().Dx(), raster.Bounds().Dy()
	if width == 0 || height == 0 {
		return u.fail(ctx, image, "original image is empty", domain.ErrInvalidImageData)
	}

	if needsPreview(image.SourceType) && image.PreviewPath == "" {
		u.savePreview(ctx, image, raster)
	}

	// quality was resolved at upload; 0 is a valid, most aggressive setting
	quality := image.Quality

	out, err := u.codec.Encode(ctx, image.OutputType.String(), raster, domain.CompressionOptions{Quality: quality})
	if err != nil {
		return u.fail(ctx, image, errorMessage(err), err)
	}
	if len(out) == 0 {
		return u.fail(ctx, image, "empty buffer after encoding", domain.ErrCodecFailed)
	}

	outputPath, err := u.storage.SaveCompressed(ctx, image.ID+image.OutputType.Extension(), bytes.NewReader(out))
	if err != nil {
		return u.fail(ctx, image, "failed to save compressed file", err)
	}

	image.MarkAsComplete(outputPath, int64(len(out)), width, height)
	if err := u.repo.Update(ctx, image); err != nil {
		// the job must not stay in processing; a failed job can be requeued
		return u.fail(ctx, image, "failed to record compression result", err)
	}

	zlog.Logger.Info().
		Str("image_id", imageID).
		Str("output_path", outputPath).
		Int("width", width).
		Int("height", height).
		Str("original_size", helpers.FormatFileSize(image.OriginalSize)).
		Str("compressed_size", helpers.FormatFileSize(image.CompressedSize)).
		Float64("savings_percent", image.SavingsPercent()).
		Msg("image compressed successfully")

	return nil
}

func (u *CompressUsecase) readOriginal(ctx context.Context, p string) ([]byte, error) {
	file, err := u.storage.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// savePreview stores a PNG rendering of the decoded original. Failure is
// logged and does not fail the job.
func (u *CompressUsecase) savePreview(ctx context.Context, job *domain.ImageFile, raster *image.NRGBA) {
	var preview image.Image = raster
	if u.previewer != nil {
		preview = u.previewer.Render(raster)
	}
	png, err := u.codec.Encode(ctx, domain.FormatPNG.String(), preview, domain.CompressionOptions{})
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("image_id", job.ID).Msg("failed to encode preview")
		return
	}
	previewPath, err := u.storage.SaveCompressed(ctx, job.ID+"_preview.png", bytes.NewReader(png))
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("image_id", job.ID).Msg("failed to save preview")
		return
	}
	job.PreviewPath = previewPath
}

// fail records the job as failed. The record is written even if ctx was
// cancelled mid-job.
func (u *CompressUsecase) fail(ctx context.Context, image *domain.ImageFile, msg string, cause error) error {
	image.MarkAsError(msg)
	if err := u.repo.Update(context.WithoutCancel(ctx), image); err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Msg("failed to update status to error")
	}
	zlog.Logger.Error().
		Err(cause).
		Str("image_id", image.ID).
		Str("source_type", image.SourceType.String()).
		Str("output_type", image.OutputType.String()).
		Msg(msg)
	return fmt.Errorf("compress image %s: %s: %w", image.ID, msg, cause)
}

// errorMessage keeps codec failures at their short user-facing message.
func errorMessage(err error) string {
	var codecErr *domain.CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Error()
	}
	return err.Error()
}
