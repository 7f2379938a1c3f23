package codec

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/gifsicle"
)

type fakeOptimizer struct {
	out   []byte
	err   error
	calls int
	opts  gifsicle.Options
	input []byte
}

func (f *fakeOptimizer) Optimize(ctx context.Context, input []byte, opts gifsicle.Options) ([]byte, error) {
	f.calls++
	f.opts = opts
	f.input = input
	return f.out, f.err
}

func testRaster(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func TestLossyLevel(t *testing.T) {
	tests := []struct {
		quality  int
		expected int
	}{
		{100, 0},
		{0, 50},
		{75, 13},
		{80, 10},
		{51, 25},
		{150, 0},
		{-10, 50},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LossyLevel(tt.quality), "quality %d", tt.quality)
	}
}

func TestGIFEncodeUsesOptimizer(t *testing.T) {
	opt := &fakeOptimizer{out: []byte("GIF89a-optimized")}
	c := NewGIFCodec(opt)

	out, err := c.Encode(context.Background(), testRaster(8, 8), domain.CompressionOptions{Quality: 75})
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a-optimized"), out)
	assert.Equal(t, 1, opt.calls)
	assert.Equal(t, gifsicle.Options{Level: 3, Lossy: 13, Colors: 256}, opt.opts)
	assert.Equal(t, "GIF89a", string(opt.input[:6]))
}

func TestGIFEncodeDegradesWhenOptimizerFails(t *testing.T) {
	raster := testRaster(8, 8)

	unoptimized, err := NewGIFCodec(nil).Encode(context.Background(), raster, domain.CompressionOptions{Quality: 60})
	require.NoError(t, err)

	tests := []struct {
		name string
		opt  *fakeOptimizer
	}{
		{"optimizer error", &fakeOptimizer{err: errors.New("exit status 1")}},
		{"optimizer empty output", &fakeOptimizer{out: []byte{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewGIFCodec(tt.opt).Encode(context.Background(), raster, domain.CompressionOptions{Quality: 60})
			require.NoError(t, err)
			assert.Equal(t, 1, tt.opt.calls)
			assert.Equal(t, unoptimized, out)
		})
	}
}

func TestGIFEncodeThroughDispatcherWithMissingBinary(t *testing.T) {
	d := NewDispatcher(NewGIFCodec(gifsicle.New("gifsicle-does-not-exist-on-this-host", 0)))

	out, err := d.Encode(context.Background(), "gif", testRaster(4, 4), domain.CompressionOptions{Quality: 75})
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(out[:6]))
}

func TestGIFDecodeRejectsOtherFormats(t *testing.T) {
	c := NewGIFCodec(nil)
	png, err := NewPNGCodec().Encode(context.Background(), testRaster(2, 2), domain.CompressionOptions{})
	require.NoError(t, err)

	_, err = c.Decode(context.Background(), png)
	assert.ErrorIs(t, err, domain.ErrInvalidImageData)
}
