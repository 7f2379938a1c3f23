package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/dto"
)

// ImageWorker runs compression tasks taken from the queue.
type ImageWorker struct {
	compressor domain.CompressorService
}

func NewImageWorker(compressor domain.CompressorService) *ImageWorker {
	return &ImageWorker{
		compressor: compressor,
	}
}

// HandleCompressionTask returns an error only for failures worth retrying.
// Jobs that failed inside a codec are already recorded as failed and are
// acknowledged so they do not loop.
func (w *ImageWorker) HandleCompressionTask(ctx context.Context, task *dto.CompressImageRequest) error {
	if err := task.Validate(); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("image_id", task.ImageID).
			Str("output_type", task.OutputType).
			Msg("invalid compression task")
		return nil
	}

	zlog.Logger.Info().
		Str("image_id", task.ImageID).
		Str("output_type", task.OutputType).
		Msg("starting image compression task")

	err := w.compressor.CompressImage(ctx, task.ImageID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrImageNotFound),
		errors.Is(err, domain.ErrCodecFailed),
		errors.Is(err, domain.ErrUnsupportedSource),
		errors.Is(err, domain.ErrUnsupportedOutput),
		errors.Is(err, domain.ErrInvalidImageData):
		zlog.Logger.Warn().
			Err(err).
			Str("image_id", task.ImageID).
			Msg("compression failed permanently, dropping task")
		return nil
	default:
		return fmt.Errorf("compress image %s: %w", task.ImageID, err)
	}

	zlog.Logger.Info().
		Str("image_id", task.ImageID).
		Msg("image compressed successfully")

	return nil
}
