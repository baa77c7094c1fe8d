package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"golang.org/x/image/draw"

	"imgconv/internal/blob"
	"imgconv/internal/logging"
	"imgconv/internal/services"
	"imgconv/internal/stage"
)

// Pipeline turns input files into encoded outputs.
type Pipeline struct {
	webp   WebPEncoder
	avif   AVIFEncoder
	logger *slog.Logger
}

// NewPipeline wires the encoders. Either may be nil, in which case
// conversions to that format fail with ErrEncoderUnavailable.
func NewPipeline(webpEncoder WebPEncoder, avifEncoder AVIFEncoder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		webp:   webpEncoder,
		avif:   avifEncoder,
		logger: logging.NewComponentLogger(logger, "imaging"),
	}
}

// Convert decodes file and encodes it per settings.
func (p *Pipeline) Convert(ctx context.Context, file blob.File, settings Settings) (blob.Blob, error) {
	if err := settings.Validate(); err != nil {
		return blob.Blob{}, services.Wrap(services.ErrConfiguration, "convert", "validate settings", "", err)
	}
	data, err := file.ReadAll()
	if err != nil {
		return blob.Blob{}, services.Wrap(services.ErrDecodeFailed, "decode", "read input", file.Name, err)
	}
	rgba, err := Decode(data)
	if err != nil {
		return blob.Blob{}, services.Wrap(services.ErrDecodeFailed, "decode", "decode image", file.Name, err)
	}
	return p.Encode(ctx, rgba, settings)
}

// Encode encodes an already decoded frame.
func (p *Pipeline) Encode(ctx context.Context, img *image.RGBA, settings Settings) (out blob.Blob, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = blob.Blob{}
			err = services.Wrap(services.ErrEncoderUnavailable, "encode", string(settings.Format), "encoder panicked", fmt.Errorf("%v", r))
		}
	}()
	quality := CodecQuality(settings.Quality)
	var data []byte
	switch settings.Format {
	case FormatWebP:
		if p.webp == nil {
			return blob.Blob{}, services.Wrap(services.ErrEncoderUnavailable, "encode", "webp", "no webp encoder configured", nil)
		}
		data, err = p.webp.Encode(img, quality)
		if err != nil {
			return blob.Blob{}, services.Wrap(services.ErrCodec, "encode", "webp", "", err)
		}
	case FormatAVIF:
		if p.avif == nil {
			return blob.Blob{}, services.Wrap(services.ErrEncoderUnavailable, "encode", "avif", "no avif encoder configured", nil)
		}
		encoded, encErr := p.avif.Encode(ctx, img.Rect.Dx(), img.Rect.Dy(), img.Pix, quality)
		if encErr != nil {
			return blob.Blob{}, classifyAVIFError(encErr)
		}
		data = encoded.Bytes()
	default:
		return blob.Blob{}, services.Wrap(services.ErrConfiguration, "encode", "select encoder", string(settings.Format), nil)
	}
	if len(data) == 0 || !matchesFormat(settings.Format, data) {
		return blob.Blob{}, services.Wrap(services.ErrEncoderUnavailable, "encode", string(settings.Format),
			fmt.Sprintf("encoder returned %d bytes without a %s signature", len(data), settings.Format), nil)
	}
	p.logger.Debug("image encoded",
		logging.String("format", string(settings.Format)),
		logging.Int("quality", quality),
		logging.Int("width", img.Rect.Dx()),
		logging.Int("height", img.Rect.Dy()),
		logging.Int("output_bytes", len(data)),
	)
	return blob.New(data, settings.Format.MIME()), nil
}

// HealthChecks returns one checker per configured encoder.
func (p *Pipeline) HealthChecks() []stage.Checker {
	return []stage.Checker{encoderCheck{p: p, format: FormatWebP}, encoderCheck{p: p, format: FormatAVIF}}
}

type encoderCheck struct {
	p      *Pipeline
	format Format
}

// HealthCheck encodes a single opaque pixel.
func (c encoderCheck) HealthCheck(ctx context.Context) stage.Health {
	name := string(c.format) + " encoder"
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[3] = 0xff
	if _, err := c.p.Encode(ctx, img, Settings{Format: c.format, Quality: 0.5}); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// Decode reads a JPEG or PNG at natural size into a tightly packed RGBA
// image with origin (0, 0).
func Decode(data []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ToRGBA(src), nil
}

// ToRGBA rasterises src onto a fresh RGBA canvas of the same size.
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func classifyAVIFError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrCodec) {
		return err
	}
	return services.Wrap(services.ErrEncoderUnavailable, "encode", "avif", "", err)
}
