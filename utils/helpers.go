package utils

import "bytes"

const (
	formatJPEG    = "jpeg"
	formatPNG     = "png"
	formatGIF     = "gif"
	formatBMP     = "bmp"
	formatUnknown = "unknown"
)

// HeaderLen is how many leading bytes DetectFormat needs.
const HeaderLen = 8

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// DetectFormat sniffs the leading bytes of data and returns the image
// format.  File names and content types are never consulted.
func DetectFormat(data []byte) string {
	switch {
	// JPEG: FF D8
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return formatJPEG
	// PNG: full 8-byte signature
	case bytes.HasPrefix(data, pngSignature):
		return formatPNG
	// GIF: "GIF"
	case bytes.HasPrefix(data, []byte("GIF")):
		return formatGIF
	// BMP: "BM"
	case bytes.HasPrefix(data, []byte("BM")):
		return formatBMP
	}
	return formatUnknown
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
