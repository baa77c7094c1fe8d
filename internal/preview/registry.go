// Package preview hands out revocable references to input files so a view
// can show them, and renders thumbnails on demand.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"imgconv/internal/blob"
	"imgconv/internal/imaging"
	"imgconv/internal/logging"
)

const handlePrefix = "preview:"

// ErrRevoked is returned for handles that were never issued or were revoked.
var ErrRevoked = errors.New("preview handle revoked")

// Registry tracks live preview handles.
type Registry struct {
	mu      sync.Mutex
	entries map[string]blob.File
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]blob.File),
		logger:  logging.NewComponentLogger(logger, "preview"),
	}
}

// Create issues a new handle for file.
func (r *Registry) Create(file blob.File) string {
	handle := handlePrefix + uuid.NewString()
	r.mu.Lock()
	r.entries[handle] = file
	r.mu.Unlock()
	return handle
}

// Resolve returns the file behind handle.
func (r *Registry) Resolve(handle string) (blob.File, error) {
	r.mu.Lock()
	file, ok := r.entries[handle]
	r.mu.Unlock()
	if !ok {
		return blob.File{}, fmt.Errorf("%w: %s", ErrRevoked, handle)
	}
	return file, nil
}

// Revoke releases handle. It reports whether the handle was live.
func (r *Registry) Revoke(handle string) bool {
	if !strings.HasPrefix(handle, handlePrefix) {
		return false
	}
	r.mu.Lock()
	_, ok := r.entries[handle]
	delete(r.entries, handle)
	r.mu.Unlock()
	return ok
}

// RevokeAll releases every handle and returns how many were live.
func (r *Registry) RevokeAll() int {
	r.mu.Lock()
	n := len(r.entries)
	r.entries = make(map[string]blob.File)
	r.mu.Unlock()
	if n > 0 {
		r.logger.Debug("preview handles revoked", logging.Int("count", n))
	}
	return n
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Dimensions reads the pixel size of the image behind handle without
// decoding it fully.
func (r *Registry) Dimensions(handle string) (int, int, error) {
	file, err := r.Resolve(handle)
	if err != nil {
		return 0, 0, err
	}
	data, err := file.ReadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("read preview source: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode preview header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail renders the image behind handle so its longer side is at most
// maxDim pixels. Smaller images are returned at natural size.
func (r *Registry) Thumbnail(handle string, maxDim int) (*image.RGBA, error) {
	file, err := r.Resolve(handle)
	if err != nil {
		return nil, err
	}
	data, err := file.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read preview source: %w", err)
	}
	src, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	return Scale(src, maxDim), nil
}

// Scale fits src within maxDim×maxDim, preserving aspect ratio.
func Scale(src *image.RGBA, maxDim int) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return src
	}
	tw, th := maxDim, maxDim
	if w >= h {
		th = max(1, h*maxDim/w)
	} else {
		tw = max(1, w*maxDim/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
