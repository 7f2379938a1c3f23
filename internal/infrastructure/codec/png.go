package codec

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// PNG is lossless, so compression options are ignored on encode.
type PNG struct{}

func NewPNGCodec() *PNG {
	return &PNG{}
}

func (c *PNG) Format() domain.Format { return domain.FormatPNG }

func (c *PNG) Init(_ context.Context) error { return nil }

func (c *PNG) Decode(_ context.Context, data []byte) (image.Image, error) {
	if err := expectMime(data, "image/png"); err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(data))
}

func (c *PNG) Encode(_ context.Context, img image.Image, _ domain.CompressionOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
