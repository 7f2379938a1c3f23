package dto

import (
	"math"
	"time"

	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/helpers"
)

type ImageResponse struct {
	ID               string     `json:"id"`
	OriginalFilename string     `json:"original_filename"`
	MimeType         string     `json:"mime_type"`
	SourceType       string     `json:"source_type"`
	OutputType       string     `json:"output_type"`
	Quality          int        `json:"quality"`
	OriginalSize     int64      `json:"original_size"`
	OriginalSizeText string     `json:"original_size_text"`
	CompressedSize   int64      `json:"compressed_size,omitempty"`
	CompressedText   string     `json:"compressed_size_text,omitempty"`
	SavingsPercent   float64    `json:"savings_percent,omitempty"`
	Width            int        `json:"width,omitempty"`
	Height           int        `json:"height,omitempty"`
	Status           string     `json:"status"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// URLs
	OriginalURL   string `json:"original_url"`
	CompressedURL string `json:"compressed_url,omitempty"`
	PreviewURL    string `json:"preview_url,omitempty"`
}

type ImageListResponse struct {
	Images []*ImageResponse `json:"images"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type FormatResponse struct {
	Format         string `json:"format"`
	MimeType       string `json:"mime_type"`
	Extension      string `json:"extension"`
	Lossless       bool   `json:"lossless"`
	DefaultQuality int    `json:"default_quality"`
	Ready          bool   `json:"ready"`
}

type FormatsResponse struct {
	Formats []FormatResponse `json:"formats"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func MapImageToResponse(img *domain.ImageFile, baseURL string) *ImageResponse {
	if img == nil {
		return nil
	}

	resp := &ImageResponse{
		ID:               img.ID,
		OriginalFilename: img.OriginalFilename,
		MimeType:         img.MimeType,
		SourceType:       img.SourceType.String(),
		OutputType:       img.OutputType.String(),
		Quality:          img.Quality,
		OriginalSize:     img.OriginalSize,
		OriginalSizeText: helpers.FormatFileSize(img.OriginalSize),
		Width:            img.Width,
		Height:           img.Height,
		Status:           string(img.Status),
		ErrorMessage:     img.ErrorMessage,
		CreatedAt:        img.CreatedAt,
		UpdatedAt:        img.UpdatedAt,
		CompletedAt:      img.CompletedAt,
		OriginalURL:      baseURL + "/image/" + img.ID + "/original",
	}

	if img.IsComplete() {
		resp.CompressedSize = img.CompressedSize
		resp.CompressedText = helpers.FormatFileSize(img.CompressedSize)
		resp.SavingsPercent = math.Round(img.SavingsPercent()*100) / 100
		resp.CompressedURL = baseURL + "/image/" + img.ID
	}
	if img.PreviewPath != "" {
		resp.PreviewURL = baseURL + "/image/" + img.ID + "/preview"
	}

	return resp
}

func MapImagesToResponse(images []*domain.ImageFile, baseURL string, limit, offset int) *ImageListResponse {
	responses := make([]*ImageResponse, 0, len(images))
	for _, img := range images {
		responses = append(responses, MapImageToResponse(img, baseURL))
	}

	return &ImageListResponse{
		Images: responses,
		Total:  len(responses),
		Limit:  limit,
		Offset: offset,
	}
}
