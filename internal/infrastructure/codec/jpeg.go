package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/gen2brain/jpegli"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

type JPEG struct{}

func NewJPEGCodec() *JPEG {
	return &JPEG{}
}

func (c *JPEG) Format() domain.Format { return domain.FormatJPEG }

func (c *JPEG) Init(_ context.Context) error {
	jpegli.Init()
	return nil
}

func (c *JPEG) Decode(_ context.Context, data []byte) (image.Image, error) {
	return jpegli.Decode(bytes.NewReader(data))
}

func (c *JPEG) Encode(_ context.Context, img image.Image, opts domain.CompressionOptions) ([]byte, error) {
	// jpegli replaces quality 0 with its default of 75
	quality := clampInt(opts.ClampedQuality(), 1, 100)

	var buf bytes.Buffer
	err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
		Quality:              quality,
		ChromaSubsampling:    image.YCbCrSubsampleRatio420,
		OptimizeCoding:       true,
		AdaptiveQuantization: true,
		DCTMethod:            jpegli.DefaultDCTMethod,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
