package domain

import (
	"strings"
	"time"
)

// Format is the closed set of image formats the codec dispatcher understands.
type Format string

const (
	FormatAVIF Format = "avif"
	FormatJPEG Format = "jpeg"
	FormatJXL  Format = "jxl"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
)

var allFormats = []Format{FormatAVIF, FormatJPEG, FormatJXL, FormatPNG, FormatWebP, FormatGIF}

// AllFormats returns every supported format in a stable order.
func AllFormats() []Format {
	out := make([]Format, len(allFormats))
	copy(out, allFormats)
	return out
}

// ParseFormat maps a source/output tag to a Format. "jpg" is accepted as an alias of jpeg.
func ParseFormat(tag string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "avif":
		return FormatAVIF, true
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "jxl":
		return FormatJXL, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	case "gif":
		return FormatGIF, true
	default:
		return "", false
	}
}

func (f Format) String() string {
	return string(f)
}

// Extension returns the file extension with a leading dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

func (f Format) MimeType() string {
	switch f {
	case FormatJXL:
		return "image/jxl"
	case "":
		return "application/octet-stream"
	default:
		return "image/" + string(f)
	}
}

// Lossless reports whether the format is encoded without a quality parameter.
func (f Format) Lossless() bool {
	return f == FormatPNG
}

// CompressionOptions are passed through to the format codec.
// Effort is only honoured by AVIF.
type CompressionOptions struct {
	Quality int
	Effort  int
}

// ClampedQuality returns Quality limited to 0..100.
func (o CompressionOptions) ClampedQuality() int {
	switch {
	case o.Quality < 0:
		return 0
	case o.Quality > 100:
		return 100
	default:
		return o.Quality
	}
}

// FormatStatus is the readiness of one codec as last reported by a worker.
type FormatStatus struct {
	Format    Format    `json:"format"`
	Ready     bool      `json:"ready"`
	Lossless  bool      `json:"lossless"`
	UpdatedAt time.Time `json:"updated_at"`
}
