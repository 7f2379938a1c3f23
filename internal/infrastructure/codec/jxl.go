package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/gen2brain/jpegxl"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// jxlEffort is libjxl's own default effort.
const jxlEffort = 7

type JXL struct{}

func NewJXLCodec() *JXL {
	return &JXL{}
}

func (c *JXL) Format() domain.Format { return domain.FormatJXL }

func (c *JXL) Init(ctx context.Context) error {
	return warmUp(ctx, c)
}

func (c *JXL) Decode(_ context.Context, data []byte) (image.Image, error) {
	return jpegxl.Decode(bytes.NewReader(data))
}

func (c *JXL) Encode(_ context.Context, img image.Image, opts domain.CompressionOptions) ([]byte, error) {
	var buf bytes.Buffer
	err := jpegxl.Encode(&buf, img, jpegxl.Options{
		Quality: opts.ClampedQuality(),
		Effort:  jxlEffort,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
