package transform

import (
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Convert returns src re-encoded in the dst colorspace.
//
// Conversions inside one chroma family (YV12/I420/NV12/NV21, or
// YUV422/NV16/NV61/UYVY/YUYV) only reorder samples and are lossless.  All
// other pairs go through straight-alpha RGBA using the full-range BT.601
// matrix of image/color.
func Convert(src *core.RawImage, dst core.Colorspace) (*core.RawImage, error) {
	l, err := checkSource("transform.convert", src)
	if err != nil {
		return nil, err
	}
	dl, err := core.NativeCode(dst)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParameter, "transform.convert", err)
	}
	if src.Colorspace == dst {
		return src.Clone(), nil
	}

	if l.Subsampled() && dl.Subsampled() {
		sx, sy := l.ChromaShift()
		dx, dy := dl.ChromaShift()
		if sx == dx && sy == dy {
			p, err := splitYUV(src)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.KindInvalidParameter, "transform.convert", err)
			}
			return joinYUV(p, dst)
		}
	}

	pix, err := toRGBA(src)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParameter, "transform.convert", err)
	}
	out, err := fromRGBA(pix, src.Width, src.Height, dst)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParameter, "transform.convert", err)
	}
	return out, nil
}
