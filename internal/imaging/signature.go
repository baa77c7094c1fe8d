package imaging

import "encoding/binary"

// IsWebP reports whether data starts with a RIFF/WEBP header.
func IsWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// IsAVIF reports whether data starts with an ISO-BMFF ftyp box naming the
// avif or avis brand, either as major brand or among the compatible brands.
func IsAVIF(data []byte) bool {
	if len(data) < 16 || string(data[4:8]) != "ftyp" {
		return false
	}
	size := int(binary.BigEndian.Uint32(data[0:4]))
	if size < 16 || size > len(data) {
		size = len(data)
	}
	if isAVIFBrand(data[8:12]) {
		return true
	}
	for off := 16; off+4 <= size; off += 4 {
		if isAVIFBrand(data[off : off+4]) {
			return true
		}
	}
	return false
}

func isAVIFBrand(b []byte) bool {
	s := string(b)
	return s == "avif" || s == "avis"
}

func matchesFormat(f Format, data []byte) bool {
	switch f {
	case FormatWebP:
		return IsWebP(data)
	case FormatAVIF:
		return IsAVIF(data)
	default:
		return false
	}
}
