package binutil

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
)

// zipTable is the reflected table for polynomial 0xEDB88320.
var zipTable = crc32.MakeTable(crc32.IEEE)

// CRC32 returns the ZIP CRC-32 of b. The register starts at 0xFFFFFFFF and the
// result is XORed with 0xFFFFFFFF, so CRC32(nil) == 0.
func CRC32(b []byte) uint32 {
	return crc32.Checksum(b, zipTable)
}

// NewHasher returns a streaming hash.Hash32 producing the same value as CRC32.
func NewHasher() hash.Hash32 {
	return crc32.New(zipTable)
}

// AppendUint16LE appends v to dst in little-endian order.
func AppendUint16LE(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

// AppendUint32LE appends v to dst in little-endian order.
func AppendUint32LE(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// PutUint16LE returns the two little-endian bytes of v.
func PutUint16LE(v uint16) []byte {
	return AppendUint16LE(make([]byte, 0, 2), v)
}

// PutUint32LE returns the four little-endian bytes of v.
func PutUint32LE(v uint32) []byte {
	return AppendUint32LE(make([]byte, 0, 4), v)
}

// Concat joins parts in order into a new slice whose length is the sum of the
// part lengths.
func Concat(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
