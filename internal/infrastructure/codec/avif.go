package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/gen2brain/avif"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// DefaultAVIFEffort is a medium encoding effort on the 0..10 scale.
const DefaultAVIFEffort = 4

type AVIF struct {
	effort int
}

func NewAVIFCodec(effort int) *AVIF {
	if effort <= 0 {
		effort = DefaultAVIFEffort
	}
	return &AVIF{effort: clampInt(effort, 0, 10)}
}

func (c *AVIF) Format() domain.Format { return domain.FormatAVIF }

func (c *AVIF) Init(ctx context.Context) error {
	return warmUp(ctx, c)
}

func (c *AVIF) Decode(_ context.Context, data []byte) (image.Image, error) {
	return avif.Decode(bytes.NewReader(data))
}

func (c *AVIF) Encode(_ context.Context, img image.Image, opts domain.CompressionOptions) ([]byte, error) {
	effort := c.effort
	if opts.Effort > 0 {
		effort = clampInt(opts.Effort, 0, 10)
	}
	quality := opts.ClampedQuality()

	var buf bytes.Buffer
	// libavif speaks speed, not effort: 0 is the slowest, 10 the fastest
	err := avif.Encode(&buf, img, avif.Options{
		Quality:      quality,
		QualityAlpha: quality,
		Speed:        10 - effort,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
