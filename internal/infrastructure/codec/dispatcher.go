package codec

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// Dispatcher routes decode and encode calls to the codec registered for a
// format tag and owns the per-format readiness gate.
type Dispatcher struct {
	codecs map[domain.Format]Codec
	gate   *Gate
}

func NewDispatcher(codecs ...Codec) *Dispatcher {
	d := &Dispatcher{
		codecs: make(map[domain.Format]Codec, len(codecs)),
		gate:   NewGate(),
	}
	for _, c := range codecs {
		d.codecs[c.Format()] = c
	}
	return d
}

// NewDefaultDispatcher registers a codec for every supported format.
func NewDefaultDispatcher(optimizer GIFOptimizer, avifEffort int) *Dispatcher {
	return NewDispatcher(
		NewAVIFCodec(avifEffort),
		NewJPEGCodec(),
		NewJXLCodec(),
		NewPNGCodec(),
		NewWebPCodec(),
		NewGIFCodec(optimizer),
	)
}

func (d *Dispatcher) lookup(tag string) (Codec, bool) {
	format, ok := domain.ParseFormat(tag)
	if !ok {
		return nil, false
	}
	c, ok := d.codecs[format]
	return c, ok
}

// Decode turns an encoded buffer of the given source type into a raster.
func (d *Dispatcher) Decode(ctx context.Context, sourceType string, data []byte) (*image.NRGBA, error) {
	c, ok := d.lookup(sourceType)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, sourceType)
		zlog.Logger.Error().Err(err).Str("source_type", sourceType).Msg("failed to decode image")
		return nil, &domain.CodecError{Op: domain.OpDecode, Tag: sourceType, Err: err}
	}

	img, err := d.decode(ctx, c, data)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("source_type", sourceType).
			Int("bytes", len(data)).
			Msg("failed to decode image")
		return nil, &domain.CodecError{Op: domain.OpDecode, Tag: sourceType, Err: err}
	}

	zlog.Logger.Debug().
		Str("source_type", sourceType).
		Int("width", img.Rect.Dx()).
		Int("height", img.Rect.Dy()).
		Msg("image decoded")
	return img, nil
}

func (d *Dispatcher) decode(ctx context.Context, c Codec, data []byte) (img *image.NRGBA, err error) {
	defer recoverPanic(&err)

	if len(data) == 0 {
		return nil, domain.ErrInvalidImageData
	}
	if err := d.gate.Ensure(ctx, c.Format(), c.Init); err != nil {
		return nil, err
	}
	decoded, err := c.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	if decoded == nil || decoded.Bounds().Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", domain.ErrInvalidImageData)
	}
	return toRaster(decoded), nil
}

// Encode turns a raster into the given output type.
func (d *Dispatcher) Encode(ctx context.Context, outputType string, img image.Image, opts domain.CompressionOptions) ([]byte, error) {
	c, ok := d.lookup(outputType)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrUnsupportedOutput, outputType)
		zlog.Logger.Error().Err(err).Str("output_type", outputType).Msg("failed to encode image")
		return nil, &domain.CodecError{Op: domain.OpEncode, Tag: outputType, Err: err}
	}

	out, err := d.encode(ctx, c, img, opts)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("output_type", outputType).
			Int("quality", opts.Quality).
			Msg("failed to encode image")
		return nil, &domain.CodecError{Op: domain.OpEncode, Tag: outputType, Err: err}
	}

	zlog.Logger.Debug().
		Str("output_type", outputType).
		Int("quality", opts.Quality).
		Int("bytes", len(out)).
		Msg("image encoded")
	return out, nil
}

func (d *Dispatcher) encode(ctx context.Context, c Codec, img image.Image, opts domain.CompressionOptions) (out []byte, err error) {
	defer recoverPanic(&err)

	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: raster is empty", domain.ErrInvalidImageData)
	}
	if err := d.gate.Ensure(ctx, c.Format(), c.Init); err != nil {
		return nil, err
	}
	out, err = c.Encode(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("codec produced no output")
	}
	return out, nil
}

// WarmUp initializes every registered codec. Failures are joined; formats
// that failed are retried on first use.
func (d *Dispatcher) WarmUp(ctx context.Context) error {
	var errs []error
	for _, f := range domain.AllFormats() {
		c, ok := d.codecs[f]
		if !ok {
			continue
		}
		if err := d.gate.Ensure(ctx, f, c.Init); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Formats reports every registered codec and whether it has been initialized.
func (d *Dispatcher) Formats() []domain.FormatStatus {
	now := time.Now()
	out := make([]domain.FormatStatus, 0, len(d.codecs))
	for _, f := range domain.AllFormats() {
		if _, ok := d.codecs[f]; !ok {
			continue
		}
		out = append(out, domain.FormatStatus{
			Format:    f,
			Ready:     d.gate.Ready(f),
			Lossless:  f.Lossless(),
			UpdatedAt: now,
		})
	}
	return out
}

func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("codec panic: %v", r)
	}
}
