package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/dto"
)

// FormatCatalog reports the formats workers can handle.
type FormatCatalog interface {
	Formats(ctx context.Context) ([]domain.FormatStatus, error)
}

type ImageHandler struct {
	service        domain.ImageService
	formats        FormatCatalog
	defaultQuality func(domain.Format) int
	maxUploadSize  int64
}

func NewImageHandler(
	service domain.ImageService,
	formats FormatCatalog,
	defaultQuality func(domain.Format) int,
	maxUploadSizeMB int,
) *ImageHandler {
	return &ImageHandler{
		service:        service,
		formats:        formats,
		defaultQuality: defaultQuality,
		maxUploadSize:  int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

func (h *ImageHandler) RegisterRoutes(engine *ginext.Engine) {
	engine.POST("/upload", h.UploadImage)
	engine.GET("/image/:id", h.GetCompressedImage)
	engine.GET("/image/:id/original", h.GetOriginalImage)
	engine.GET("/image/:id/preview", h.GetPreviewImage)
	engine.GET("/image/:id/info", h.GetImageInfo)
	engine.POST("/image/:id/retry", h.RetryImage)
	engine.DELETE("/image/:id", h.DeleteImage)
	engine.GET("/images", h.ListImages)
	engine.GET("/formats", h.ListFormats)
}

// UploadImage POST /upload
func (h *ImageHandler) UploadImage(c *ginext.Context) {
	// multipart overhead on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+1<<20)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(c, domain.ErrFileTooLarge)
			return
		}
		zlog.Logger.Warn().Err(err).Msg("failed to get file from request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "No image file provided",
		})
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		h.writeError(c, domain.ErrFileTooLarge)
		return
	}

	var req dto.UploadImageRequest
	req.OutputType = c.PostForm("output_type")
	if req.OutputType == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "output_type is required",
		})
		return
	}
	if q := c.PostForm("quality"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 || v > 100 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "invalid_quality",
				Message: "quality must be an integer between 0 and 100",
			})
			return
		}
		req.Quality = &v
	}

	image, err := h.service.UploadImage(c.Request.Context(), domain.UploadRequest{
		Filename:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Size:       header.Size,
		Reader:     file,
		OutputType: req.OutputType,
		Quality:    req.Quality,
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("filename", header.Filename).Msg("failed to upload image")
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapImageToResponse(image, h.getBaseURL(c)))
}

// GetCompressedImage GET /image/:id
func (h *ImageHandler) GetCompressedImage(c *ginext.Context) {
	h.serveVariant(c, domain.VariantCompressed)
}

// GetOriginalImage GET /image/:id/original
func (h *ImageHandler) GetOriginalImage(c *ginext.Context) {
	h.serveVariant(c, domain.VariantOriginal)
}

// GetPreviewImage GET /image/:id/preview
func (h *ImageHandler) GetPreviewImage(c *ginext.Context) {
	h.serveVariant(c, domain.VariantPreview)
}

func (h *ImageHandler) serveVariant(c *ginext.Context, variant domain.FileVariant) {
	id := c.Param("id")

	content, err := h.service.GetImageFile(c.Request.Context(), id, variant)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer content.Close()

	if stat, ok := content.ReadCloser.(interface{ Stat() (os.FileInfo, error) }); ok {
		if info, err := stat.Stat(); err == nil {
			c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
		}
	}

	c.Header("Content-Type", content.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": content.Filename}))
	c.Status(http.StatusOK)

	written, err := io.Copy(c.Writer, content)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("image_id", id).
			Str("variant", string(variant)).
			Int64("bytes_written", written).
			Msg("failed to write image to response")
		return
	}
	zlog.Logger.Debug().
		Str("image_id", id).
		Str("variant", string(variant)).
		Int64("bytes_written", written).
		Msg("image sent")
}

// GetImageInfo GET /image/:id/info
func (h *ImageHandler) GetImageInfo(c *ginext.Context) {
	image, err := h.service.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapImageToResponse(image, h.getBaseURL(c)))
}

// RetryImage POST /image/:id/retry
func (h *ImageHandler) RetryImage(c *ginext.Context) {
	image, err := h.service.RequeueImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.MapImageToResponse(image, h.getBaseURL(c)))
}

// DeleteImage DELETE /image/:id
func (h *ImageHandler) DeleteImage(c *ginext.Context) {
	if err := h.service.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListImages GET /images
func (h *ImageHandler) ListImages(c *ginext.Context) {
	q := dto.ListImagesQuery{Status: c.Query("status")}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil {
		q.Offset = o
	}
	filter, err := q.ToFilter()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_status",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	images, err := h.service.ListImages(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapImagesToResponse(images, h.getBaseURL(c), filter.Limit, filter.Offset))
}

// ListFormats GET /formats
func (h *ImageHandler) ListFormats(c *ginext.Context) {
	statuses, err := h.formats.Formats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := dto.FormatsResponse{Formats: make([]dto.FormatResponse, 0, len(statuses))}
	for _, s := range statuses {
		quality := 100
		if h.defaultQuality != nil {
			quality = h.defaultQuality(s.Format)
		}
		resp.Formats = append(resp.Formats, dto.FormatResponse{
			Format:         s.Format.String(),
			MimeType:       s.Format.MimeType(),
			Extension:      s.Format.Extension(),
			Lossless:       s.Lossless,
			DefaultQuality: quality,
			Ready:          s.Ready,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps domain errors onto HTTP responses.
func (h *ImageHandler) writeError(c *ginext.Context, err error) {
	status, code, msg := http.StatusInternalServerError, "server_error", "Internal server error"

	switch {
	case errors.Is(err, domain.ErrImageNotFound):
		status, code, msg = http.StatusNotFound, "not_found", "Image not found"
	case errors.Is(err, domain.ErrNotCompressed):
		status, code, msg = http.StatusConflict, "not_ready", "Image is not compressed yet"
	case errors.Is(err, domain.ErrAlreadyProcessing):
		status, code, msg = http.StatusConflict, "invalid_state", "Image is not in a failed state"
	case errors.Is(err, domain.ErrUnsupportedSource):
		status, code, msg = http.StatusUnsupportedMediaType, "unsupported_source", "Unsupported source type"
	case errors.Is(err, domain.ErrUnsupportedOutput), errors.Is(err, domain.ErrInvalidFormat):
		status, code, msg = http.StatusBadRequest, "unsupported_output", "Unsupported output type"
	case errors.Is(err, domain.ErrInvalidImageData):
		status, code, msg = http.StatusBadRequest, "invalid_image", "Invalid image data"
	case errors.Is(err, domain.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "file_too_large"
		msg = fmt.Sprintf("File size exceeds maximum allowed (%d MB)", h.maxUploadSize/(1024*1024))
	case errors.Is(err, domain.ErrQueueFailed):
		status, code, msg = http.StatusServiceUnavailable, "queue_unavailable", "Image stored but could not be queued, retry later"
	default:
		zlog.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.JSON(status, dto.ErrorResponse{Error: code, Message: msg, Code: status})
}

func (h *ImageHandler) getBaseURL(c *ginext.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
