package core

import (
	"iter"

	apperrors "github.com/Skryldev/image-util/errors"
)

// Colorspace is a concrete pixel memory layout.
type Colorspace int

const (
	ColorspaceYV12 Colorspace = iota
	ColorspaceYUV422
	ColorspaceI420
	ColorspaceNV12
	ColorspaceUYVY
	ColorspaceYUYV
	ColorspaceRGB565
	ColorspaceRGB888
	ColorspaceARGB8888
	ColorspaceBGRA8888
	ColorspaceRGBA8888
	ColorspaceBGRX8888
	ColorspaceNV21
	ColorspaceNV16
	ColorspaceNV61

	colorspaceCount
)

var colorspaceNames = [colorspaceCount]string{
	"YV12", "YUV422", "I420", "NV12", "UYVY", "YUYV", "RGB565", "RGB888",
	"ARGB8888", "BGRA8888", "RGBA8888", "BGRX8888", "NV21", "NV16", "NV61",
}

func (c Colorspace) Valid() bool { return c >= 0 && c < colorspaceCount }

func (c Colorspace) String() string {
	if !c.Valid() {
		return "invalid"
	}
	return colorspaceNames[c]
}

// Colorspaces returns every colorspace in enum order.
func Colorspaces() []Colorspace {
	out := make([]Colorspace, colorspaceCount)
	for i := range out {
		out[i] = Colorspace(i)
	}
	return out
}

// ParseColorspace maps a name such as "RGBA8888" back to its Colorspace.
func ParseColorspace(s string) (Colorspace, error) {
	for i, n := range colorspaceNames {
		if n == s {
			return Colorspace(i), nil
		}
	}
	return 0, apperrors.Newf(apperrors.KindInvalidParameter, "colorspace.parse", "unknown colorspace %q", s)
}

// Family groups colorspaces by memory layout.
type Family int

const (
	FamilyPacked        Family = iota // one interleaved plane, BytesPerPixel each
	FamilyPlanar420                   // Y, then two quarter-size chroma planes
	FamilySemiPlanar420               // Y, then one interleaved quarter-size chroma plane
	FamilyPlanar422                   // Y, then two half-width chroma planes
	FamilySemiPlanar422               // Y, then one interleaved half-width chroma plane
	FamilyPacked422                   // 2x1 macro pixels of 4 bytes
)

// Channel order of the packed RGB layouts.
type Order int

const (
	OrderNone Order = iota
	OrderRGB
	OrderARGB
	OrderBGRA
	OrderRGBA
	OrderBGRX
)

// Layout is the native description of a colorspace the conversion routines
// switch on.
type Layout struct {
	Family        Family
	BytesPerPixel int   // packed RGB families only
	Order         Order // packed RGB families only
	RGB565        bool
	// VFirst is true when V (Cr) precedes U (Cb): YV12, NV21, NV61.
	VFirst bool
	// YFirst orders packed 4:2:2 macro pixels: YUYV is true, UYVY false.
	YFirst bool
}

// Subsampled reports whether the layout carries subsampled chroma.
func (l Layout) Subsampled() bool { return l.Family != FamilyPacked }

// ChromaShift returns log2 of the horizontal and vertical chroma subsampling.
func (l Layout) ChromaShift() (sx, sy int) {
	switch l.Family {
	case FamilyPlanar420, FamilySemiPlanar420:
		return 1, 1
	case FamilyPlanar422, FamilySemiPlanar422, FamilyPacked422:
		return 1, 0
	}
	return 0, 0
}

var layouts = [colorspaceCount]Layout{
	ColorspaceYV12:     {Family: FamilyPlanar420, VFirst: true},
	ColorspaceYUV422:   {Family: FamilyPlanar422},
	ColorspaceI420:     {Family: FamilyPlanar420},
	ColorspaceNV12:     {Family: FamilySemiPlanar420},
	ColorspaceUYVY:     {Family: FamilyPacked422},
	ColorspaceYUYV:     {Family: FamilyPacked422, YFirst: true},
	ColorspaceRGB565:   {Family: FamilyPacked, BytesPerPixel: 2, Order: OrderRGB, RGB565: true},
	ColorspaceRGB888:   {Family: FamilyPacked, BytesPerPixel: 3, Order: OrderRGB},
	ColorspaceARGB8888: {Family: FamilyPacked, BytesPerPixel: 4, Order: OrderARGB},
	ColorspaceBGRA8888: {Family: FamilyPacked, BytesPerPixel: 4, Order: OrderBGRA},
	ColorspaceRGBA8888: {Family: FamilyPacked, BytesPerPixel: 4, Order: OrderRGBA},
	ColorspaceBGRX8888: {Family: FamilyPacked, BytesPerPixel: 4, Order: OrderBGRX},
	ColorspaceNV21:     {Family: FamilySemiPlanar420, VFirst: true},
	ColorspaceNV16:     {Family: FamilySemiPlanar422},
	ColorspaceNV61:     {Family: FamilySemiPlanar422, VFirst: true},
}

// NativeCode returns the layout descriptor of cs.
func NativeCode(cs Colorspace) (Layout, error) {
	if !cs.Valid() {
		return Layout{}, apperrors.Newf(apperrors.KindInvalidParameter, "colorspace.native", "invalid colorspace %d", int(cs))
	}
	return layouts[cs], nil
}

// supportTable lists, per format, the colorspaces its adapters accept.
var supportTable = map[Format][]Colorspace{
	FormatJPEG: {
		ColorspaceYV12, ColorspaceI420, ColorspaceNV12, ColorspaceRGB888,
		ColorspaceARGB8888, ColorspaceBGRA8888, ColorspaceRGBA8888,
	},
	FormatPNG: {ColorspaceRGBA8888},
	FormatGIF: {ColorspaceRGBA8888},
	FormatBMP: {ColorspaceRGBA8888},
}

// Supported reports whether format's adapters accept cs.  It is false for
// unknown formats and invalid colorspaces.
func Supported(cs Colorspace, format Format) bool {
	for _, c := range supportTable[format] {
		if c == cs {
			return true
		}
	}
	return false
}

// CheckSupported returns NotSupportedFormat for an unsupported pairing and
// InvalidParameter for an invalid colorspace.
func CheckSupported(op string, cs Colorspace, format Format) error {
	if !cs.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "invalid colorspace %d", int(cs))
	}
	if !Supported(cs, format) {
		return apperrors.Newf(apperrors.KindNotSupportedFormat, op, "%s does not support %s", format, cs)
	}
	return nil
}

// SupportedColorspaces yields format's colorspaces in descending enum
// order.  Every range over the returned sequence starts again from the top.
func SupportedColorspaces(format Format) iter.Seq[Colorspace] {
	return func(yield func(Colorspace) bool) {
		for cs := colorspaceCount - 1; cs >= 0; cs-- {
			if Supported(cs, format) && !yield(cs) {
				return
			}
		}
	}
}

// ForEachSupportedColorspace calls fn for each colorspace of format until fn
// returns false.
func ForEachSupportedColorspace(format Format, fn func(Colorspace) bool) error {
	if !format.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, "colorspace.foreach", "unknown format %q", format)
	}
	if fn == nil {
		return apperrors.Newf(apperrors.KindInvalidParameter, "colorspace.foreach", "nil callback")
	}
	for cs := range SupportedColorspaces(format) {
		if !fn(cs) {
			break
		}
	}
	return nil
}

// RotationSupported reports whether the transform engine can rotate cs.
func RotationSupported(cs Colorspace) bool {
	switch cs {
	case ColorspaceRGB565, ColorspaceRGB888, ColorspaceARGB8888, ColorspaceBGRA8888,
		ColorspaceRGBA8888, ColorspaceBGRX8888,
		ColorspaceYV12, ColorspaceI420, ColorspaceNV12:
		return true
	}
	return false
}
