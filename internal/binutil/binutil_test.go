package binutil_test

import (
	"bytes"
	"testing"

	"imgconv/internal/binutil"
)

func TestCRC32KnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		{name: "empty", input: nil, want: 0},
		{name: "check string", input: []byte("123456789"), want: 0xCBF43926},
		{name: "single a", input: []byte("a"), want: 0xE8B7BE43},
		{name: "quick fox", input: []byte("The quick brown fox jumps over the lazy dog"), want: 0x414FA339},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := binutil.CRC32(tc.input); got != tc.want {
				t.Fatalf("CRC32(%q) = %#08x, want %#08x", tc.input, got, tc.want)
			}
		})
	}
}

func TestHasherMatchesOneShot(t *testing.T) {
	h := binutil.NewHasher()
	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	if got := h.Sum32(); got != 0xCBF43926 {
		t.Fatalf("streaming crc = %#08x, want 0xcbf43926", got)
	}
}

func TestLittleEndianPacking(t *testing.T) {
	if got := binutil.PutUint16LE(0x0800); !bytes.Equal(got, []byte{0x00, 0x08}) {
		t.Fatalf("PutUint16LE = %x", got)
	}
	if got := binutil.PutUint32LE(0x04034b50); !bytes.Equal(got, []byte{0x50, 0x4b, 0x03, 0x04}) {
		t.Fatalf("PutUint32LE = %x", got)
	}
	buf := binutil.AppendUint16LE([]byte{0xff}, 0xABCD)
	buf = binutil.AppendUint32LE(buf, 1)
	want := []byte{0xff, 0xCD, 0xAB, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf, want) {
		t.Fatalf("append = %x, want %x", buf, want)
	}
}

func TestConcatPreservesOrderAndLength(t *testing.T) {
	out := binutil.Concat([]byte("ab"), nil, []byte{}, []byte("cde"))
	if string(out) != "abcde" {
		t.Fatalf("Concat = %q", out)
	}
	if len(out) != 5 {
		t.Fatalf("len = %d, want 5", len(out))
	}
	if got := binutil.Concat(); len(got) != 0 {
		t.Fatalf("empty Concat len = %d", len(got))
	}
}
