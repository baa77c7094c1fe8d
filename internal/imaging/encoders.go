package imaging

import (
	"bytes"
	"context"
	"image"

	"github.com/gen2brain/webp"

	"imgconv/internal/blob"
)

// WebPEncoder encodes an RGBA image at quality 0-100.
type WebPEncoder interface {
	Encode(img *image.RGBA, quality int) ([]byte, error)
}

// AVIFEncoder encodes a packed RGBA frame at quality 0-100. The encode
// channel implements it.
type AVIFEncoder interface {
	Encode(ctx context.Context, width, height int, rgba []byte, quality int) (blob.Blob, error)
}

// LibWebP encodes lossy WebP through libwebp. Method trades speed (0) for
// size (6).
type LibWebP struct {
	Method int
}

// Encode implements WebPEncoder.
func (e LibWebP) Encode(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: quality, Method: e.Method}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
