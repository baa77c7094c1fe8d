// Package blob models immutable binary payloads (encoded outputs, archives)
// and the input files a session converts.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MIME types produced or accepted by the converter.
const (
	TypeJPEG   = "image/jpeg"
	TypePNG    = "image/png"
	TypeWebP   = "image/webp"
	TypeAVIF   = "image/avif"
	TypeZIP    = "application/zip"
	TypeBinary = "application/octet-stream"
)

// Source is anything whose content can be read in full and whose length is
// known up front. Size returns -1 when the length is unknown.
type Source interface {
	Open() (io.ReadCloser, error)
	Size() int64
}

// Blob is an immutable in-memory payload with a MIME type. The zero value is
// an empty blob with no type.
type Blob struct {
	data []byte
	mime string
}

// New wraps data without copying. Callers hand over ownership of data.
func New(data []byte, mimeType string) Blob {
	return Blob{data: data, mime: strings.TrimSpace(mimeType)}
}

// Bytes exposes the payload. The returned slice must not be modified.
func (b Blob) Bytes() []byte { return b.data }

// MIME returns the payload type.
func (b Blob) MIME() string { return b.mime }

// Size returns the payload length in bytes.
func (b Blob) Size() int64 { return int64(len(b.data)) }

// IsZero reports whether the blob carries no payload.
func (b Blob) IsZero() bool { return len(b.data) == 0 && b.mime == "" }

// Open returns a reader over the payload.
func (b Blob) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// WithMIME returns a blob sharing the payload under a different type.
func (b Blob) WithMIME(mimeType string) Blob {
	return Blob{data: b.data, mime: strings.TrimSpace(mimeType)}
}

// File describes one user-supplied input: its name, declared type, size, and
// where the bytes live (a path on disk or an inline buffer).
type File struct {
	Name string
	Type string
	Path string
	Data []byte
	size int64
}

// FromPath describes the file at path. The declared type is derived from the
// extension, the same way a file picker reports it.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name: info.Name(),
		Type: TypeForName(info.Name()),
		Path: path,
		size: info.Size(),
	}, nil
}

// FromBytes describes an in-memory input.
func FromBytes(name, declaredType string, data []byte) File {
	return File{Name: name, Type: strings.TrimSpace(declaredType), Data: data, size: int64(len(data))}
}

// WithSize returns a copy of f that reports size as its length.
func (f File) WithSize(size int64) File {
	f.size = size
	return f
}

// Size returns the recorded input length.
func (f File) Size() int64 {
	if f.size == 0 && f.Data != nil {
		return int64(len(f.Data))
	}
	return f.size
}

// Open returns a reader over the input bytes.
func (f File) Open() (io.ReadCloser, error) {
	if f.Data != nil {
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	}
	if f.Path == "" {
		return nil, errors.New("input has neither path nor data")
	}
	return os.Open(f.Path)
}

// ReadAll loads the complete input.
func (f File) ReadAll() ([]byte, error) {
	if f.Data != nil {
		return f.Data, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// EffectiveType returns the declared type, falling back to the extension
// when the declaration is empty.
func (f File) EffectiveType() string {
	if t := strings.ToLower(strings.TrimSpace(f.Type)); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return TypeForName(f.Name)
}

// TypeForName maps a file name's extension to a MIME type without parameters.
func TypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
