package archive

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"imgconv/internal/binutil"
	"imgconv/internal/blob"
	"imgconv/internal/services"
)

const (
	sigLocalHeader   uint32 = 0x04034b50
	sigCentralHeader uint32 = 0x02014b50
	sigEndOfCentral  uint32 = 0x06054b50

	zipVersion   uint16 = 20
	flagUTF8     uint16 = 1 << 11
	methodStored uint16 = 0

	localHeaderLen   = 30
	centralHeaderLen = 46
	endOfCentralLen  = 22
)

var (
	// ErrInvalidName marks an entry name that is not a relative path.
	ErrInvalidName = errors.New("invalid archive entry name")
	// ErrArchiveLimit marks input that would need ZIP64 fields.
	ErrArchiveLimit = errors.New("archive exceeds classic zip limits")
)

// Entry is one named payload. Duplicate names are written as given.
type Entry struct {
	Name   string
	Source blob.Source
}

type preparedEntry struct {
	name   []byte
	data   []byte
	crc    uint32
	offset uint32
}

// Build returns the complete archive for entries, in order.
func Build(entries []Entry) ([]byte, error) {
	prepared, total, err := prepare(entries)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, total)
	return assemble(out, prepared)
}

// WriteTo builds the archive and writes it to w in one call, so nothing is
// written when an entry fails to read.
func WriteTo(w io.Writer, entries []Entry) (int64, error) {
	data, err := Build(entries)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// BuildBlob wraps Build as an application/zip blob.
func BuildBlob(entries []Entry) (blob.Blob, error) {
	data, err := Build(entries)
	if err != nil {
		return blob.Blob{}, err
	}
	return blob.New(data, blob.TypeZIP), nil
}

func prepare(entries []Entry) ([]preparedEntry, int, error) {
	if len(entries) > math.MaxUint16 {
		return nil, 0, fmt.Errorf("%w: %d entries", ErrArchiveLimit, len(entries))
	}
	prepared := make([]preparedEntry, 0, len(entries))
	offset := 0
	centralSize := 0
	for i, entry := range entries {
		if err := ValidateName(entry.Name); err != nil {
			return nil, 0, err
		}
		data, err := readEntry(entry)
		if err != nil {
			return nil, 0, services.Wrap(services.ErrArchiveRead, "archive", "read entry", fmt.Sprintf("#%d %s", i+1, entry.Name), err)
		}
		if uint64(len(data)) >= math.MaxUint32 || uint64(offset) >= math.MaxUint32 {
			return nil, 0, fmt.Errorf("%w: entry %s at offset %d with %d bytes", ErrArchiveLimit, entry.Name, offset, len(data))
		}
		name := []byte(entry.Name)
		prepared = append(prepared, preparedEntry{
			name:   name,
			data:   data,
			crc:    binutil.CRC32(data),
			offset: uint32(offset),
		})
		offset += localHeaderLen + len(name) + len(data)
		centralSize += centralHeaderLen + len(name)
	}
	if uint64(offset) >= math.MaxUint32 || uint64(offset+centralSize) >= math.MaxUint32 {
		return nil, 0, fmt.Errorf("%w: central directory at offset %d", ErrArchiveLimit, offset)
	}
	return prepared, offset + centralSize + endOfCentralLen, nil
}

func readEntry(entry Entry) ([]byte, error) {
	if entry.Source == nil {
		return nil, errors.New("entry has no source")
	}
	rc, err := entry.Source.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if want := entry.Source.Size(); want >= 0 && int64(len(data)) != want {
		return nil, fmt.Errorf("short read: got %d of %d bytes", len(data), want)
	}
	return data, nil
}

func assemble(out []byte, entries []preparedEntry) ([]byte, error) {
	central := make([]byte, 0, len(entries)*centralHeaderLen)
	for _, e := range entries {
		out = appendLocalHeader(out, e)
		out = append(out, e.data...)
		central = appendCentralHeader(central, e)
	}
	centralOffset := uint32(len(out))
	out = append(out, central...)
	out = appendEndOfCentral(out, uint16(len(entries)), uint32(len(central)), centralOffset)
	return out, nil
}

func appendLocalHeader(b []byte, e preparedEntry) []byte {
	size := uint32(len(e.data))
	b = binutil.AppendUint32LE(b, sigLocalHeader)
	b = binutil.AppendUint16LE(b, zipVersion)
	b = binutil.AppendUint16LE(b, flagUTF8)
	b = binutil.AppendUint16LE(b, methodStored)
	b = binutil.AppendUint16LE(b, 0) // mod time
	b = binutil.AppendUint16LE(b, 0) // mod date
	b = binutil.AppendUint32LE(b, e.crc)
	b = binutil.AppendUint32LE(b, size)
	b = binutil.AppendUint32LE(b, size)
	b = binutil.AppendUint16LE(b, uint16(len(e.name)))
	b = binutil.AppendUint16LE(b, 0)
	return append(b, e.name...)
}

func appendCentralHeader(b []byte, e preparedEntry) []byte {
	size := uint32(len(e.data))
	b = binutil.AppendUint32LE(b, sigCentralHeader)
	b = binutil.AppendUint16LE(b, zipVersion) // made by
	b = binutil.AppendUint16LE(b, zipVersion) // needed
	b = binutil.AppendUint16LE(b, flagUTF8)
	b = binutil.AppendUint16LE(b, methodStored)
	b = binutil.AppendUint16LE(b, 0)
	b = binutil.AppendUint16LE(b, 0)
	b = binutil.AppendUint32LE(b, e.crc)
	b = binutil.AppendUint32LE(b, size)
	b = binutil.AppendUint32LE(b, size)
	b = binutil.AppendUint16LE(b, uint16(len(e.name)))
	b = binutil.AppendUint16LE(b, 0) // extra
	b = binutil.AppendUint16LE(b, 0) // comment
	b = binutil.AppendUint16LE(b, 0) // disk number start
	b = binutil.AppendUint16LE(b, 0) // internal attrs
	b = binutil.AppendUint32LE(b, 0) // external attrs
	b = binutil.AppendUint32LE(b, e.offset)
	return append(b, e.name...)
}

func appendEndOfCentral(b []byte, count uint16, size, offset uint32) []byte {
	b = binutil.AppendUint32LE(b, sigEndOfCentral)
	b = binutil.AppendUint16LE(b, 0)
	b = binutil.AppendUint16LE(b, 0)
	b = binutil.AppendUint16LE(b, count)
	b = binutil.AppendUint16LE(b, count)
	b = binutil.AppendUint32LE(b, size)
	b = binutil.AppendUint32LE(b, offset)
	return binutil.AppendUint16LE(b, 0)
}

// ValidateName reports whether name can be stored as a relative entry path.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: %q is not UTF-8", ErrInvalidName, name)
	case len(name) > math.MaxUint16:
		return fmt.Errorf("%w: %d bytes", ErrArchiveLimit, len(name))
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	case strings.ContainsRune(name, '\\'):
		return fmt.Errorf("%w: %q contains a backslash", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q escapes the archive root", ErrInvalidName, name)
		}
	}
	return nil
}
