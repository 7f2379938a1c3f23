package codec

import (
	"bytes"
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/gifsicle"
)

const (
	gifOptimizeLevel = 3
	gifColors        = 256
)

// GIFOptimizer post-processes an encoded GIF.
type GIFOptimizer interface {
	Optimize(ctx context.Context, input []byte, opts gifsicle.Options) ([]byte, error)
}

// GIF decodes the first frame and encodes a single-frame, 256-color GIF that
// is then handed to the optimizer.
type GIF struct {
	optimizer GIFOptimizer
}

// NewGIFCodec accepts a nil optimizer; output is then left unoptimized.
func NewGIFCodec(optimizer GIFOptimizer) *GIF {
	return &GIF{optimizer: optimizer}
}

func (c *GIF) Format() domain.Format { return domain.FormatGIF }

func (c *GIF) Init(_ context.Context) error { return nil }

func (c *GIF) Decode(_ context.Context, data []byte) (image.Image, error) {
	if err := expectMime(data, "image/gif"); err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(data))
}

// Encode never fails because of the optimizer: on optimizer errors the
// unoptimized GIF is returned.
func (c *GIF) Encode(ctx context.Context, img image.Image, opts domain.CompressionOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.GIF, imaging.GIFNumColors(gifColors)); err != nil {
		return nil, err
	}
	raw := buf.Bytes()

	if c.optimizer == nil {
		return raw, nil
	}

	lossy := LossyLevel(opts.ClampedQuality())
	optimized, err := c.optimizer.Optimize(ctx, raw, gifsicle.Options{
		Level:  gifOptimizeLevel,
		Lossy:  lossy,
		Colors: gifColors,
	})
	if err != nil || len(optimized) == 0 {
		zlog.Logger.Warn().
			Err(err).
			Int("lossy", lossy).
			Int("bytes", len(raw)).
			Msg("failed to optimize GIF, returning unoptimized output")
		return raw, nil
	}

	return optimized, nil
}

// LossyLevel converts a 0..100 quality into gifsicle's lossy level, (100-quality)/2 rounded.
func LossyLevel(quality int) int {
	quality = clampInt(quality, 0, 100)
	return int(math.Round(float64(100-quality) / 2))
}
