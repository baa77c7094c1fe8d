package export_test

import (
	"testing"
	"time"

	"imgconv/internal/export"
	"imgconv/internal/imaging"
)

func TestDeriveOutputName(t *testing.T) {
	cases := []struct {
		input  string
		format imaging.Format
		want   string
	}{
		{"photo.JPEG", imaging.FormatAVIF, "photo.avif"},
		{"photo.png", imaging.FormatWebP, "photo.webp"},
		{"archive.tar.png", imaging.FormatWebP, "archive.tar.webp"},
		{"noext", imaging.FormatWebP, "noext.webp"},
		{"holiday/2024/beach.jpg", imaging.FormatWebP, "beach.webp"},
		{`C:\Users\me\cat.jpg`, imaging.FormatAVIF, "cat.avif"},
		{".jpg", imaging.FormatWebP, "image.webp"},
		{"", imaging.FormatWebP, "image.webp"},
		{"Cafe\u0301.png", imaging.FormatWebP, "Caf\u00e9.webp"},
	}
	for _, tc := range cases {
		if got := export.DeriveOutputName(tc.input, tc.format); got != tc.want {
			t.Fatalf("DeriveOutputName(%q, %s) = %q, want %q", tc.input, tc.format, got, tc.want)
		}
	}
}

func TestArchiveName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 3, 0, time.Local)
	if got := export.ArchiveName(ts); got != "converted-20240309-070503.zip" {
		t.Fatalf("ArchiveName = %q", got)
	}
}
