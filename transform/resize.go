package transform

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Resize scales src to width x height with bilinear interpolation.
func Resize(src *core.RawImage, width, height int) (*core.RawImage, error) {
	return ResizeWith(src, width, height, xdraw.BiLinear)
}

// ResizeWith scales src with the given interpolator.  The 4:2:2 layouts
// round the width down to even; the returned image carries the size that
// was actually produced.
func ResizeWith(src *core.RawImage, width, height int, interp xdraw.Interpolator) (*core.RawImage, error) {
	l, err := checkSource("transform.resize", src)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "transform.resize", "invalid resolution %dx%d", width, height)
	}
	if interp == nil {
		interp = xdraw.BiLinear
	}
	if sx, sy := l.ChromaShift(); sx == 1 && sy == 0 {
		width = evenDown(width)
	}
	if width == src.Width && height == src.Height {
		return src.Clone(), nil
	}

	switch {
	case l.Family == core.FamilyPacked && l.BytesPerPixel == 4:
		dst, err := core.AllocRawImage(width, height, src.Colorspace)
		if err != nil {
			return nil, err
		}
		scaleChannels(interp, 4, src.Data, src.Width, src.Height, dst.Data, width, height)
		return dst, nil

	case l.Family == core.FamilyPacked || l.Family == core.FamilyPacked422:
		pix, err := toRGBA(src)
		if err != nil {
			return nil, err
		}
		out := make([]byte, width*height*4)
		scaleChannels(interp, 4, pix, src.Width, src.Height, out, width, height)
		return fromRGBA(out, width, height, src.Colorspace)
	}

	srcPlanes, err := core.Planes(src.Width, src.Height, src.Colorspace)
	if err != nil {
		return nil, err
	}
	dstPlanes, err := core.Planes(width, height, src.Colorspace)
	if err != nil {
		return nil, err
	}
	dst, err := core.AllocRawImage(width, height, src.Colorspace)
	if err != nil {
		return nil, err
	}
	for i, sp := range srcPlanes {
		dp := dstPlanes[i]
		if sp.ElemSize == 1 {
			scaleGray(interp, sp.Bytes(src.Data), sp.Width, sp.Height, dp.Bytes(dst.Data), dp.Width, dp.Height)
			continue
		}
		scaleInterleaved(interp, sp, src.Data, dp, dst.Data)
	}
	return dst, nil
}

func evenDown(n int) int {
	if n < 2 {
		return 2
	}
	return n &^ 1
}

func scaleGray(interp xdraw.Interpolator, src []byte, sw, sh int, dst []byte, dw, dh int) {
	s := &image.Gray{Pix: src, Stride: sw, Rect: image.Rect(0, 0, sw, sh)}
	d := &image.Gray{Pix: dst, Stride: dw, Rect: image.Rect(0, 0, dw, dh)}
	interp.Scale(d, d.Rect, s, s.Rect, xdraw.Src, nil)
}

// scaleChannels scales n interleaved byte channels independently, each as
// its own gray plane, so no channel is read as premultiplied alpha.
func scaleChannels(interp xdraw.Interpolator, n int, src []byte, sw, sh int, dst []byte, dw, dh int) {
	in := make([]byte, sw*sh)
	out := make([]byte, dw*dh)
	for c := range n {
		for i := range in {
			in[i] = src[n*i+c]
		}
		scaleGray(interp, in, sw, sh, out, dw, dh)
		for i, v := range out {
			dst[n*i+c] = v
		}
	}
}

func scaleInterleaved(interp xdraw.Interpolator, sp core.Plane, src []byte, dp core.Plane, dst []byte) {
	scaleChannels(interp, 2, sp.Bytes(src), sp.Width, sp.Height, dp.Bytes(dst), dp.Width, dp.Height)
}
