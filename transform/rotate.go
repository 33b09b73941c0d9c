package transform

import (
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Rotate applies a clockwise rotation or a flip.  Only the packed RGB
// layouts and YV12, I420 and NV12 can be rotated.
func Rotate(src *core.RawImage, r core.Rotation) (*core.RawImage, error) {
	if _, err := checkSource("transform.rotate", src); err != nil {
		return nil, err
	}
	if !r.Valid() {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "transform.rotate", "invalid rotation %d", int(r))
	}
	if !core.RotationSupported(src.Colorspace) {
		return nil, apperrors.Newf(apperrors.KindNotSupportedFormat, "transform.rotate", "%s cannot be rotated", src.Colorspace)
	}
	if r == core.RotateNone {
		return src.Clone(), nil
	}

	dw, dh := src.Width, src.Height
	if r == core.Rotate90 || r == core.Rotate270 {
		dw, dh = dh, dw
	}
	srcPlanes, err := core.Planes(src.Width, src.Height, src.Colorspace)
	if err != nil {
		return nil, err
	}
	dstPlanes, err := core.Planes(dw, dh, src.Colorspace)
	if err != nil {
		return nil, err
	}
	dst, err := core.AllocRawImage(dw, dh, src.Colorspace)
	if err != nil {
		return nil, err
	}
	for i, sp := range srcPlanes {
		rotatePlane(sp.Bytes(src.Data), sp.Width, sp.Height, sp.ElemSize, dstPlanes[i].Bytes(dst.Data), dstPlanes[i].Width, r)
	}
	return dst, nil
}

// rotatePlane moves every element of a w x h plane to its rotated position
// in dst, whose row width is dw elements.
func rotatePlane(src []byte, w, h, elem int, dst []byte, dw int, r core.Rotation) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch r {
			case core.Rotate90:
				dx, dy = h-1-y, x
			case core.Rotate180:
				dx, dy = w-1-x, h-1-y
			case core.Rotate270:
				dx, dy = y, w-1-x
			case core.FlipHorizontal:
				dx, dy = w-1-x, y
			case core.FlipVertical:
				dx, dy = x, h-1-y
			}
			s := (y*w + x) * elem
			d := (dy*dw + dx) * elem
			copy(dst[d:d+elem], src[s:s+elem])
		}
	}
}
