package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/chai2010/webp"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	xwebp "golang.org/x/image/webp"
)

// WebP decodes with the pure Go x/image decoder and encodes with libwebp.
type WebP struct{}

func NewWebPCodec() *WebP {
	return &WebP{}
}

func (c *WebP) Format() domain.Format { return domain.FormatWebP }

func (c *WebP) Init(ctx context.Context) error {
	return warmUp(ctx, c)
}

func (c *WebP) Decode(_ context.Context, data []byte) (image.Image, error) {
	return xwebp.Decode(bytes.NewReader(data))
}

func (c *WebP) Encode(_ context.Context, img image.Image, opts domain.CompressionOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(opts.ClampedQuality())}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
