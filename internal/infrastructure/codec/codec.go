// Package codec routes image buffers to per-format codec libraries.
package codec

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// Codec is a decode/encode pair for one image format.
type Codec interface {
	Format() domain.Format
	// Init prepares the codec runtime. The dispatcher calls it through a Gate.
	Init(ctx context.Context) error
	Decode(ctx context.Context, data []byte) (image.Image, error)
	Encode(ctx context.Context, img image.Image, opts domain.CompressionOptions) ([]byte, error)
}

// warmUp encodes a single transparent pixel so a lazily compiled runtime is
// ready before the first real request.
func warmUp(ctx context.Context, c Codec) error {
	px := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	if _, err := c.Encode(ctx, px, domain.CompressionOptions{Quality: 50}); err != nil {
		return fmt.Errorf("warm up %s: %w", c.Format(), err)
	}
	return nil
}

// toRaster converts any decoded image into the NRGBA raster buffer handed to encoders.
func toRaster(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// expectMime rejects data whose signature does not match the codec it was routed to.
func expectMime(data []byte, mime string) error {
	detected := mimetype.Detect(data)
	if !detected.Is(mime) {
		return fmt.Errorf("%w: expected %s, got %s", domain.ErrInvalidImageData, mime, detected.String())
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
