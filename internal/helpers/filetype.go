package helpers

import (
	"math"
	"strconv"
	"strings"
)

// FileType derives a format tag from a file name and MIME type.
// A ".jxl" name always wins because browsers and most clients send JPEG XL
// as application/octet-stream.
func FileType(name, mimeType string) string {
	if strings.HasSuffix(strings.ToLower(name), ".jxl") {
		return "jxl"
	}
	parts := strings.Split(mimeType, "/")
	if len(parts) < 2 {
		return ""
	}
	if parts[1] == "jpeg" {
		return "jpg"
	}
	return parts[1]
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with base-1024 units and at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	// repeated division instead of log(bytes)/log(1024): exact powers of 1024
	// must land on the larger unit
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}
