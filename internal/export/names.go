package export

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"imgconv/internal/imaging"
)

const (
	archivePrefix     = "converted-"
	archiveTimeLayout = "20060102-150405"
	fallbackStem      = "image"
)

// DeriveOutputName maps an input file name to its converted name. Directory
// components are dropped, the final extension is replaced whatever its case
// (or appended when there is none), and the result is NFC-normalised.
func DeriveOutputName(input string, format imaging.Format) string {
	name := norm.NFC.String(strings.TrimSpace(input))
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = fallbackStem
	}
	return stem + format.Extension()
}

// ArchiveName names a bulk export after the local time t.
func ArchiveName(t time.Time) string {
	return archivePrefix + t.Local().Format(archiveTimeLayout) + ".zip"
}
