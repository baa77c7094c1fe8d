package imaging_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"imgconv/internal/avifworker"
	"imgconv/internal/blob"
	"imgconv/internal/imaging"
	"imgconv/internal/services"
	"imgconv/internal/testsupport"
)

type stubWebP struct {
	out     []byte
	err     error
	panics  bool
	quality int
	width   int
	height  int
	calls   int
}

func (s *stubWebP) Encode(img *image.RGBA, quality int) ([]byte, error) {
	s.calls++
	s.quality = quality
	s.width, s.height = img.Rect.Dx(), img.Rect.Dy()
	if s.panics {
		panic("encoder exploded")
	}
	return s.out, s.err
}

type stubAVIF struct {
	out blob.Blob
	err error
	pix int
}

func (s *stubAVIF) Encode(_ context.Context, width, height int, rgba []byte, quality int) (blob.Blob, error) {
	s.pix = len(rgba)
	return s.out, s.err
}

var webpHeader = []byte("RIFF\x10\x00\x00\x00WEBPVP8 ")

func avifHeader() []byte {
	return []byte("\x00\x00\x00\x1cftypmif1\x00\x00\x00\x00mif1avifmiaf")
}

func jpegFile(t *testing.T, w, h int) blob.File {
	return blob.FromBytes("photo.jpg", blob.TypeJPEG, testsupport.JPEGBytes(t, w, h))
}

func TestConvertWebPUsesNaturalSizeAndScaledQuality(t *testing.T) {
	webp := &stubWebP{out: webpHeader}
	p := imaging.NewPipeline(webp, nil, nil)

	out, err := p.Convert(context.Background(), jpegFile(t, 12, 7), imaging.Settings{Format: imaging.FormatWebP, Quality: 0.856})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.MIME() != blob.TypeWebP {
		t.Fatalf("unexpected mime %q", out.MIME())
	}
	if webp.width != 12 || webp.height != 7 {
		t.Fatalf("encoder saw %dx%d", webp.width, webp.height)
	}
	if webp.quality != 86 {
		t.Fatalf("expected quality 86, got %d", webp.quality)
	}
}

func TestConvertAVIFPassesPackedPixels(t *testing.T) {
	avif := &stubAVIF{out: blob.New(avifHeader(), blob.TypeAVIF)}
	p := imaging.NewPipeline(nil, avif, nil)

	png := blob.FromBytes("icon.png", blob.TypePNG, testsupport.PNGBytes(t, 5, 3))
	out, err := p.Convert(context.Background(), png, imaging.Settings{Format: imaging.FormatAVIF, Quality: 0.5})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.MIME() != blob.TypeAVIF {
		t.Fatalf("unexpected mime %q", out.MIME())
	}
	if avif.pix != 5*3*4 {
		t.Fatalf("expected packed rgba, got %d bytes", avif.pix)
	}
}

func TestConvertErrors(t *testing.T) {
	ctx := context.Background()
	webpSettings := imaging.Settings{Format: imaging.FormatWebP, Quality: 0.8}
	avifSettings := imaging.Settings{Format: imaging.FormatAVIF, Quality: 0.8}

	cases := []struct {
		name     string
		pipeline *imaging.Pipeline
		file     blob.File
		settings imaging.Settings
		want     error
	}{
		{"undecodable", imaging.NewPipeline(&stubWebP{out: webpHeader}, nil, nil), blob.FromBytes("x.jpg", blob.TypeJPEG, []byte("not an image")), webpSettings, services.ErrDecodeFailed},
		{"no webp encoder", imaging.NewPipeline(nil, nil, nil), jpegFile(t, 2, 2), webpSettings, services.ErrEncoderUnavailable},
		{"no avif encoder", imaging.NewPipeline(nil, nil, nil), jpegFile(t, 2, 2), avifSettings, services.ErrEncoderUnavailable},
		{"empty output", imaging.NewPipeline(&stubWebP{}, nil, nil), jpegFile(t, 2, 2), webpSettings, services.ErrEncoderUnavailable},
		{"png instead of webp", imaging.NewPipeline(&stubWebP{out: testsupport.PNGBytes(t, 1, 1)}, nil, nil), jpegFile(t, 2, 2), webpSettings, services.ErrEncoderUnavailable},
		{"webp failure", imaging.NewPipeline(&stubWebP{err: errors.New("oom")}, nil, nil), jpegFile(t, 2, 2), webpSettings, services.ErrCodec},
		{"panic", imaging.NewPipeline(&stubWebP{panics: true}, nil, nil), jpegFile(t, 2, 2), webpSettings, services.ErrEncoderUnavailable},
		{"avif codec", imaging.NewPipeline(nil, &stubAVIF{err: services.Wrap(services.ErrCodec, "avif", "encode", "", errors.New("bad"))}, nil), jpegFile(t, 2, 2), avifSettings, services.ErrCodec},
		{"avif closed", imaging.NewPipeline(nil, &stubAVIF{err: avifworker.ErrChannelClosed}, nil), jpegFile(t, 2, 2), avifSettings, services.ErrEncoderUnavailable},
		{"avif cancelled", imaging.NewPipeline(nil, &stubAVIF{err: context.Canceled}, nil), jpegFile(t, 2, 2), avifSettings, context.Canceled},
		{"bad quality", imaging.NewPipeline(&stubWebP{out: webpHeader}, nil, nil), jpegFile(t, 2, 2), imaging.Settings{Format: imaging.FormatWebP, Quality: 1.5}, services.ErrConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.pipeline.Convert(ctx, tc.file, tc.settings)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if out.Size() != 0 {
				t.Fatalf("expected no output on failure")
			}
		})
	}
}

func TestSignatures(t *testing.T) {
	if !imaging.IsWebP(webpHeader) || imaging.IsWebP([]byte("RIFF1234WAVE")) {
		t.Fatal("webp signature mismatch")
	}
	if !imaging.IsAVIF(avifHeader()) {
		t.Fatal("expected compatible brand avif to match")
	}
	major := []byte("\x00\x00\x00\x14ftypavis\x00\x00\x00\x00mif1")
	if !imaging.IsAVIF(major) {
		t.Fatal("expected major brand avis to match")
	}
	heic := []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic")
	if imaging.IsAVIF(heic) {
		t.Fatal("heic must not match")
	}
	if imaging.IsAVIF([]byte("ftyp")) {
		t.Fatal("short input must not match")
	}
}

func TestCodecQuality(t *testing.T) {
	cases := map[float64]int{0: 0, 0.004: 0, 0.006: 1, 0.5: 50, 0.85: 85, 0.999: 100, 1: 100, -1: 0, 2: 100}
	for in, want := range cases {
		if got := imaging.CodecQuality(in); got != want {
			t.Fatalf("CodecQuality(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	f, err := imaging.ParseFormat(" AVIF ")
	if err != nil || f != imaging.FormatAVIF || f.Extension() != ".avif" || f.MIME() != blob.TypeAVIF {
		t.Fatalf("ParseFormat(AVIF) = %q, %v", f, err)
	}
	if _, err := imaging.ParseFormat("gif"); err == nil {
		t.Fatal("expected gif to be rejected")
	}
}

func TestLibWebPProducesWebP(t *testing.T) {
	p := imaging.NewPipeline(imaging.LibWebP{Method: 0}, nil, nil)
	out, err := p.Convert(context.Background(), jpegFile(t, 16, 16), imaging.Settings{Format: imaging.FormatWebP, Quality: 0.75})
	if err != nil {
		t.Fatalf("Convert with libwebp: %v", err)
	}
	if !imaging.IsWebP(out.Bytes()) {
		t.Fatalf("libwebp output lacks RIFF/WEBP header")
	}
}

func TestHealthChecksReportEachEncoder(t *testing.T) {
	p := imaging.NewPipeline(&stubWebP{out: webpHeader}, nil, nil)
	results := p.HealthChecks()
	if len(results) != 2 {
		t.Fatalf("expected two checkers, got %d", len(results))
	}
	webp := results[0].HealthCheck(context.Background())
	avif := results[1].HealthCheck(context.Background())
	if !webp.Ready || webp.Name != "webp encoder" {
		t.Fatalf("unexpected webp health %+v", webp)
	}
	if avif.Ready || avif.Detail == "" {
		t.Fatalf("expected avif encoder to be unavailable, got %+v", avif)
	}
}
