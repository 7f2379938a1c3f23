// Package processor prepares decoded rasters for display.
package processor

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
)

const (
	DefaultPreviewWidth  = 1024
	DefaultPreviewHeight = 1024
)

// PreviewRenderer shrinks rasters to fit a bounding box for browser previews.
type PreviewRenderer struct {
	maxWidth  int
	maxHeight int
}

func NewPreviewRenderer(maxWidth, maxHeight int) *PreviewRenderer {
	if maxWidth <= 0 || maxHeight <= 0 {
		zlog.Logger.Warn().
			Int("preview_width", maxWidth).
			Int("preview_height", maxHeight).
			Msg("Invalid preview dimensions, using defaults")
		maxWidth, maxHeight = DefaultPreviewWidth, DefaultPreviewHeight
	}
	return &PreviewRenderer{maxWidth: maxWidth, maxHeight: maxHeight}
}

func (p *PreviewRenderer) MaxSize() (int, int) {
	return p.maxWidth, p.maxHeight
}

// Render returns img unchanged when it already fits, otherwise a Lanczos
// downscale that keeps the aspect ratio. It never upscales.
func (p *PreviewRenderer) Render(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= p.maxWidth && b.Dy() <= p.maxHeight {
		return img
	}

	preview := imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)
	if preview.Bounds().Empty() {
		zlog.Logger.Error().
			Int("preview_width", p.maxWidth).
			Int("preview_height", p.maxHeight).
			Msg("Preview produced empty image")
		return img
	}

	zlog.Logger.Debug().
		Int("original_width", b.Dx()).
		Int("original_height", b.Dy()).
		Int("preview_width", preview.Bounds().Dx()).
		Int("preview_height", preview.Bounds().Dy()).
		Msg("Preview downscaled")

	return preview
}
