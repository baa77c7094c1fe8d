package avifworker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/gen2brain/avif"

	"imgconv/internal/blob"
	"imgconv/internal/logging"
)

// Codec encodes a tightly packed RGBA frame. quality is on the codec's
// 0-100 scale.
type Codec interface {
	Encode(width, height int, rgba []byte, quality int) ([]byte, error)
}

// Loader prepares a codec. It runs on the worker goroutine.
type Loader func() (Codec, error)

// CodecOptions tune the libavif encoder.
type CodecOptions struct {
	Speed int
}

// DefaultLoader returns a loader for the libavif codec. Loading encodes a
// single pixel so the WebAssembly module is compiled before the first real
// frame.
func DefaultLoader(opts CodecOptions) Loader {
	return func() (codec Codec, err error) {
		defer func() {
			if r := recover(); r != nil {
				codec, err = nil, fmt.Errorf("load avif codec: %v", r)
			}
		}()
		c := libavifCodec{speed: opts.Speed}
		if _, err := c.Encode(1, 1, []byte{0, 0, 0, 255}, 50); err != nil {
			return nil, fmt.Errorf("load avif codec: %w", err)
		}
		return c, nil
	}
}

type libavifCodec struct {
	speed int
}

func (c libavifCodec) Encode(width, height int, rgba []byte, quality int) ([]byte, error) {
	img := &image.RGBA{Pix: rgba, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	var buf bytes.Buffer
	err := avif.Encode(&buf, img, avif.Options{
		Quality:           quality,
		QualityAlpha:      quality,
		Speed:             c.speed,
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type codecWorker struct {
	load   Loader
	codec  Codec
	logger *slog.Logger
}

// NewCodecWorker returns the standard worker: it loads the codec on the first
// request and answers every request with a result. Codec panics during an
// encode are reported on that request.
func NewCodecWorker(load Loader, logger *slog.Logger) Worker {
	if load == nil {
		load = DefaultLoader(CodecOptions{Speed: 6})
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &codecWorker{load: load, logger: logger}
	return w.run
}

func (w *codecWorker) run(ctx context.Context, in <-chan Request, post func(Response)) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-in:
			post(w.handle(req))
		}
	}
}

func (w *codecWorker) handle(req Request) (resp Response) {
	if req.Kind != KindEncode {
		return failure(req.ID, fmt.Sprintf("unsupported request %q", req.Kind))
	}
	if w.codec == nil {
		codec, err := w.load()
		if err != nil {
			w.logger.Warn("avif codec load failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "avif_codec_load_failed"),
				logging.String(logging.FieldErrorHint, "the next request retries the load"),
				logging.String(logging.FieldImpact, "this image is not converted"),
			)
			return failure(req.ID, err.Error())
		}
		w.codec = codec
		w.logger.Debug("avif codec loaded")
	}
	defer func() {
		if r := recover(); r != nil {
			resp = failure(req.ID, fmt.Sprintf("codec panic: %v", r))
		}
	}()
	out, err := w.codec.Encode(req.Width, req.Height, req.Pixels, req.Quality)
	if err != nil {
		return failure(req.ID, err.Error())
	}
	return Response{Kind: KindResult, ID: req.ID, OK: true, MIME: blob.TypeAVIF, Bytes: out}
}
