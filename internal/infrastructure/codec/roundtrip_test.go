package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/gifsicle"
)

func TestRoundTripAllFormats(t *testing.T) {
	if testing.Short() {
		t.Skip("runs every codec runtime")
	}

	optimizer := gifsicle.New("gifsicle-does-not-exist-on-this-host", 0)
	d := NewDefaultDispatcher(optimizer, DefaultAVIFEffort)
	ctx := context.Background()
	src := testRaster(32, 24)

	for _, f := range domain.AllFormats() {
		t.Run(string(f), func(t *testing.T) {
			opts := domain.CompressionOptions{Quality: 80, Effort: DefaultAVIFEffort}

			encoded, err := d.Encode(ctx, string(f), src, opts)
			require.NoError(t, err)
			require.NotEmpty(t, encoded)

			raster, err := d.Decode(ctx, string(f), encoded)
			require.NoError(t, err)
			assert.Equal(t, src.Rect.Dx(), raster.Rect.Dx())
			assert.Equal(t, src.Rect.Dy(), raster.Rect.Dy())

			reencoded, err := d.Encode(ctx, string(f), raster, opts)
			require.NoError(t, err)
			assert.NotEmpty(t, reencoded)
		})
	}
}

func TestPNGRoundTripIsLossless(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(NewPNGCodec())
	src := testRaster(16, 16)

	encoded, err := d.Encode(ctx, "png", src, domain.CompressionOptions{Quality: 1})
	require.NoError(t, err)

	raster, err := d.Decode(ctx, "png", encoded)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, raster.Pix)
}
