package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/config"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/helpers"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/storage"
)

// sniffLen is how much of an upload is buffered for MIME detection.
const sniffLen = 3072

type ImageUsecase struct {
	repo        domain.ImageRepository
	storage     storage.Storage
	queue       domain.QueueService
	compression config.CompressionConfig
	supported   map[domain.Format]bool
}

func NewImageUsecase(
	repo domain.ImageRepository,
	storage storage.Storage,
	queue domain.QueueService,
	compression config.CompressionConfig,
) *ImageUsecase {
	supported := make(map[domain.Format]bool, len(compression.SupportedFormats))
	for _, tag := range compression.SupportedFormats {
		if f, ok := domain.ParseFormat(tag); ok {
			supported[f] = true
		}
	}
	if len(supported) == 0 {
		for _, f := range domain.AllFormats() {
			supported[f] = true
		}
	}

	return &ImageUsecase{
		repo:        repo,
		storage:     storage,
		queue:       queue,
		compression: compression,
		supported:   supported,
	}
}

func (u *ImageUsecase) UploadImage(ctx context.Context, req domain.UploadRequest) (*domain.ImageFile, error) {
	if req.Reader == nil {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidImageData)
	}

	outputType, ok := domain.ParseFormat(req.OutputType)
	if !ok || !u.supported[outputType] {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedOutput, req.OutputType)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(req.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidImageData)
	}

	mimeType := req.MimeType
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = mimetype.Detect(head).String()
	}
	// drop parameters such as "; charset=binary"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	tag := helpers.FileType(req.Filename, mimeType)
	sourceType, ok := domain.ParseFormat(tag)
	if !ok || !u.supported[sourceType] {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedSource, tag)
	}

	quality := u.compression.DefaultQuality(outputType)
	if req.Quality != nil {
		quality = max(0, min(*req.Quality, 100))
	}

	imageID := uuid.New().String()
	counter := &countingReader{r: io.MultiReader(bytes.NewReader(head), req.Reader)}

	originalPath, err := u.storage.SaveOriginal(ctx, imageID+sourceType.Extension(), counter)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("filename", req.Filename).Msg("failed to save original file")
		return nil, fmt.Errorf("%w: save original: %v", domain.ErrStorageFailed, err)
	}

	now := time.Now()
	image := &domain.ImageFile{
		ID:               imageID,
		OriginalFilename: req.Filename,
		OriginalPath:     originalPath,
		MimeType:         mimeType,
		SourceType:       sourceType,
		OutputType:       outputType,
		Quality:          quality,
		OriginalSize:     counter.n,
		Status:           domain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := u.repo.Create(ctx, image); err != nil {
		_ = u.storage.Delete(ctx, originalPath)
		zlog.Logger.Error().Err(err).Str("image_id", imageID).Msg("failed to create image record")
		return nil, fmt.Errorf("create image: %w", err)
	}

	if err := u.enqueue(ctx, image); err != nil {
		return image, err
	}

	zlog.Logger.Info().
		Str("image_id", imageID).
		Str("filename", req.Filename).
		Str("source_type", sourceType.String()).
		Str("output_type", outputType.String()).
		Int("quality", quality).
		Str("size", helpers.FormatFileSize(counter.n)).
		Msg("image uploaded successfully")

	return image, nil
}

// enqueue moves the job to queued and publishes it. The status is written
// before publishing so a fast worker never has its result overwritten; a
// publish failure moves the job on to error.
func (u *ImageUsecase) enqueue(ctx context.Context, image *domain.ImageFile) error {
	if err := u.repo.UpdateStatus(ctx, image.ID, image.Status, domain.StatusQueued, ""); err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Str("status", string(image.Status)).Msg("failed to mark image queued")
		if errors.Is(err, domain.ErrStatusConflict) {
			return fmt.Errorf("%w: %v", domain.ErrAlreadyProcessing, err)
		}
		return fmt.Errorf("mark queued: %w", err)
	}
	image.MarkAsQueued()

	if err := u.queue.PublishCompressionTask(ctx, image.ID, image.OutputType, image.Quality); err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Msg("failed to publish compression task")
		const msg = "failed to enqueue compression task"
		if updErr := u.repo.UpdateStatus(context.WithoutCancel(ctx), image.ID, domain.StatusQueued, domain.StatusError, msg); updErr != nil {
			zlog.Logger.Error().Err(updErr).Str("image_id", image.ID).Msg("failed to record enqueue failure")
		} else {
			image.MarkAsError(msg)
		}
		if errors.Is(err, domain.ErrQueueFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrQueueFailed, err)
	}
	return nil
}

func (u *ImageUsecase) GetImage(ctx context.Context, id string) (*domain.ImageFile, error) {
	return u.repo.FindByID(ctx, id)
}

func (u *ImageUsecase) GetImageFile(ctx context.Context, id string, variant domain.FileVariant) (*domain.ImageContent, error) {
	image, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var filePath, filename string
	var format domain.Format
	base := strings.TrimSuffix(image.OriginalFilename, path.Ext(image.OriginalFilename))

	switch variant {
	case domain.VariantOriginal:
		filePath, filename, format = image.OriginalPath, image.OriginalFilename, image.SourceType
	case domain.VariantPreview:
		if image.PreviewPath == "" {
			return nil, domain.ErrImageNotFound
		}
		filePath, filename, format = image.PreviewPath, base+"_preview.png", domain.FormatPNG
	default:
		if !image.IsComplete() {
			zlog.Logger.Warn().Str("image_id", id).Str("status", string(image.Status)).Msg("image not compressed yet")
			return nil, domain.ErrNotCompressed
		}
		filePath, filename, format = image.OutputPath, base+image.OutputType.Extension(), image.OutputType
	}

	file, err := u.storage.Open(ctx, filePath)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Str("path", filePath).Msg("failed to open stored file")
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailed, err)
	}

	return &domain.ImageContent{
		ReadCloser:  file,
		Filename:    filename,
		ContentType: format.MimeType(),
	}, nil
}

// RequeueImage sends a failed or stuck job back to the queue.
func (u *ImageUsecase) RequeueImage(ctx context.Context, id string) (*domain.ImageFile, error) {
	image, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !image.CanBeRequeued(time.Now(), u.compression.StaleAfter()) {
		return nil, domain.ErrAlreadyProcessing
	}

	if err := u.enqueue(ctx, image); err != nil {
		return nil, err
	}

	zlog.Logger.Info().Str("image_id", id).Msg("image requeued")
	return image, nil
}

func (u *ImageUsecase) DeleteImage(ctx context.Context, id string) error {
	image, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := u.storage.DeleteAll(ctx, image.OriginalPath, image.OutputPath, image.PreviewPath); err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to delete files")
	}

	if err := u.repo.Delete(ctx, id); err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to delete image record")
		return err
	}

	zlog.Logger.Info().Str("image_id", id).Msg("image deleted successfully")
	return nil
}

// ListImages pages through jobs, newest first. Limit is clamped to 1..100.
func (u *ImageUsecase) ListImages(ctx context.Context, filter domain.ListFilter) ([]*domain.ImageFile, error) {
	filter = filter.Normalized()
	limit, offset := filter.Limit, filter.Offset

	var images []*domain.ImageFile
	var err error
	if filter.Status != "" {
		images, err = u.repo.FindByStatus(ctx, filter.Status, limit, offset)
	} else {
		images, err = u.repo.List(ctx, limit, offset)
	}
	if err != nil {
		zlog.Logger.Error().Err(err).Str("status", string(filter.Status)).Msg("failed to list images")
		return nil, err
	}
	return images, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
