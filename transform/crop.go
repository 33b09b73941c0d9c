package transform

import (
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Crop extracts the width x height rectangle at (x, y).  Subsampled layouts
// move x and y down onto the chroma grid, and the 4:2:2 layouts round the
// width down to even; the returned image carries the final size.
func Crop(src *core.RawImage, x, y, width, height int) (*core.RawImage, error) {
	l, err := checkSource("transform.crop", src)
	if err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 ||
		x >= src.Width || y >= src.Height ||
		width > src.Width-x || height > src.Height-y {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "transform.crop",
			"area %d,%d %dx%d outside %dx%d", x, y, width, height, src.Width, src.Height)
	}
	if x == 0 && y == 0 && width == src.Width && height == src.Height {
		return src.Clone(), nil
	}

	sx, sy := l.ChromaShift()
	x &^= (1 << sx) - 1
	y &^= (1 << sy) - 1
	if sx == 1 && sy == 0 {
		width = evenDown(width)
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
		in, out := sp.Bytes(src.Data), dp.Bytes(dst.Data)
		px, py := x>>sp.ShiftX, y>>sp.ShiftY
		for row := 0; row < dp.Height; row++ {
			s := (py+row)*sp.Stride() + px*sp.ElemSize
			copy(out[row*dp.Stride():(row+1)*dp.Stride()], in[s:s+dp.Stride()])
		}
	}
	return dst, nil
}
