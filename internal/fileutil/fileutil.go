// Package fileutil writes export files without clobbering existing ones.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the " (n)" probing done by WriteUnique.
const maxSuffix = 9999

// ErrNoFreeName is returned when every suffixed candidate already exists.
var ErrNoFreeName = errors.New("no free file name")

// SuffixedName returns name with " (n)" inserted before its extension.
// n == 0 returns name unchanged.
func SuffixedName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}

// WriteUnique writes data into dir under name, or the first free " (n)"
// variant when name is taken. Existing files are never replaced: the data is
// staged in a temp file, verified, then hard-linked into place, which fails
// instead of overwriting. It returns the final path.
func WriteUnique(dir, name string, data []byte, mode os.FileMode) (string, error) {
	tmp, err := writeVerifiedTemp(dir, data, mode)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	for n := 0; n <= maxSuffix; n++ {
		target := filepath.Join(dir, SuffixedName(name, n))
		err := os.Link(tmp, target)
		if err == nil {
			return target, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("link %s: %w", target, err)
	}
	return "", fmt.Errorf("%w for %s in %s", ErrNoFreeName, name, dir)
}

// writeVerifiedTemp writes data to a temp file in dir and re-reads it to
// confirm size and SHA-256 before returning its path.
func writeVerifiedTemp(dir string, data []byte, mode os.FileMode) (string, error) {
	out, err := os.CreateTemp(dir, ".imgconv-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := out.Name()
	fail := func(err error) (string, error) {
		_ = out.Close()
		_ = os.Remove(path)
		return "", err
	}

	want := sha256.Sum256(data)
	written, err := out.Write(data)
	if err != nil {
		return fail(fmt.Errorf("write temp file: %w", err))
	}
	if err := out.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}
	if err := out.Chmod(mode); err != nil {
		return fail(fmt.Errorf("chmod temp file: %w", err))
	}
	if err := out.Close(); err != nil {
		return fail(fmt.Errorf("close temp file: %w", err))
	}
	if written != len(data) {
		_ = os.Remove(path)
		return "", fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), written)
	}
	if err := verifyFile(path, int64(len(data)), want[:]); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func verifyFile(path string, size int64, sum []byte) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen temp file: %w", err)
	}
	defer in.Close()

	hasher := sha256.New()
	read, err := io.Copy(hasher, in)
	if err != nil {
		return fmt.Errorf("verify temp file: %w", err)
	}
	if read != size {
		return fmt.Errorf("verify size mismatch: expected %d bytes, found %d bytes", size, read)
	}
	if !bytes.Equal(hasher.Sum(nil), sum) {
		return errors.New("verify hash mismatch: file corrupted during write")
	}
	return nil
}
