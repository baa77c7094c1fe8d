package imaging

import (
	"fmt"
	"math"
	"strings"

	"imgconv/internal/blob"
)

// Format is a conversion target.
type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// ParseFormat accepts "webp" or "avif" in any case.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatWebP:
		return FormatWebP, nil
	case FormatAVIF:
		return FormatAVIF, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want webp or avif)", value)
	}
}

// MIME returns the output media type.
func (f Format) MIME() string {
	switch f {
	case FormatAVIF:
		return blob.TypeAVIF
	case FormatWebP:
		return blob.TypeWebP
	default:
		return ""
	}
}

// Extension returns the output file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatAVIF:
		return ".avif"
	case FormatWebP:
		return ".webp"
	default:
		return ""
	}
}

// Settings select the output format and quality. Quality is a fraction in
// [0, 1].
type Settings struct {
	Format  Format
	Quality float64
}

// Validate checks the format and quality range.
func (s Settings) Validate() error {
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return err
	}
	if math.IsNaN(s.Quality) || s.Quality < 0 || s.Quality > 1 {
		return fmt.Errorf("quality %v out of range [0, 1]", s.Quality)
	}
	return nil
}

// CodecQuality maps a fraction to the 0-100 integer scale both codecs use.
func CodecQuality(q float64) int {
	if math.IsNaN(q) || q <= 0 {
		return 0
	}
	if q >= 1 {
		return 100
	}
	return int(math.Round(q * 100))
}
