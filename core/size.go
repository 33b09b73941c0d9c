package core

import (
	"math"

	apperrors "github.com/Skryldev/image-util/errors"
)

// ComputeSize returns the byte size of a width x height buffer in cs.  It is
// the single source of truth for every buffer the engine allocates or accepts.
// The 4:2:2 layouts are sized for odd widths too, but Planes and every
// transform reject them, so callers should only allocate even-width 4:2:2.
func ComputeSize(width, height int, cs Colorspace) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, apperrors.Newf(apperrors.KindInvalidParameter, "size.compute", "invalid resolution %dx%d", width, height)
	}
	l, err := NativeCode(cs)
	if err != nil {
		return 0, err
	}
	w, h := int64(width), int64(height)
	if w*h/w != h || w*h > math.MaxInt64/4 {
		return 0, apperrors.Newf(apperrors.KindOutOfMemory, "size.compute", "%dx%d overflows", width, height)
	}
	cw, ch := (w+1)/2, (h+1)/2

	var size int64
	switch l.Family {
	case FamilyPacked:
		size = w * h * int64(l.BytesPerPixel)
	case FamilyPlanar420:
		size = w*h + 2*cw*ch
	case FamilySemiPlanar420:
		size = w*h + cw*ch*2
	default:
		size = w * h * 2
	}
	if size > math.MaxInt {
		return 0, apperrors.Newf(apperrors.KindOutOfMemory, "size.compute", "%d bytes exceeds address space", size)
	}
	return int(size), nil
}

// Plane describes one memory plane of a layout.  Element coordinates are
// pixel coordinates shifted right by ShiftX/ShiftY.
type Plane struct {
	Offset   int
	Width    int // in elements
	Height   int
	ElemSize int // bytes per element
	ShiftX   int
	ShiftY   int
}

// Len is the plane's byte length.
func (p Plane) Len() int { return p.Width * p.Height * p.ElemSize }

// Stride is the plane's row length in bytes.
func (p Plane) Stride() int { return p.Width * p.ElemSize }

// Bytes returns the plane's slice of buf.
func (p Plane) Bytes(buf []byte) []byte { return buf[p.Offset : p.Offset+p.Len()] }

// Planes returns the plane geometry of a width x height buffer in cs, in
// memory order.  The planes tile exactly ComputeSize bytes.  The 4:2:2
// families need an even width to have one.
func Planes(width, height int, cs Colorspace) ([]Plane, error) {
	if _, err := ComputeSize(width, height, cs); err != nil {
		return nil, err
	}
	l := layouts[cs]
	if (l.Family == FamilyPlanar422 || l.Family == FamilySemiPlanar422 || l.Family == FamilyPacked422) && width%2 != 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "size.planes", "%s needs an even width, got %d", cs, width)
	}

	luma := Plane{Width: width, Height: height, ElemSize: 1}
	sx, sy := l.ChromaShift()
	cw, ch := (width+(1<<sx)-1)>>sx, (height+(1<<sy)-1)>>sy
	chroma := func(off, elem int) Plane {
		return Plane{Offset: off, Width: cw, Height: ch, ElemSize: elem, ShiftX: sx, ShiftY: sy}
	}

	switch l.Family {
	case FamilyPacked:
		return []Plane{{Width: width, Height: height, ElemSize: l.BytesPerPixel}}, nil
	case FamilyPacked422:
		return []Plane{{Width: cw, Height: height, ElemSize: 4, ShiftX: 1}}, nil
	case FamilyPlanar420, FamilyPlanar422:
		first := chroma(luma.Len(), 1)
		return []Plane{luma, first, chroma(first.Offset+first.Len(), 1)}, nil
	default:
		return []Plane{luma, chroma(luma.Len(), 2)}, nil
	}
}
