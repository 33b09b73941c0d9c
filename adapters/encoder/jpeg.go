package encoder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// JPEG encodes images to baseline JPEG.  4:2:0 inputs are handed to the
// encoder as YCbCr planes without a round trip through RGB.
type JPEG struct {
	DefaultQuality int // used when EncodeOptions.Quality == 0
}

func NewJPEG(defaultQuality int) *JPEG {
	if defaultQuality <= 0 || defaultQuality > 100 {
		defaultQuality = 75
	}
	return &JPEG{DefaultQuality: defaultQuality}
}

func (j *JPEG) CanEncode(format core.Format) bool {
	return format == core.FormatJPEG
}

func (j *JPEG) Encode(ctx context.Context, img *core.RawImage, opts core.EncodeOptions) ([]byte, error) {
	const op = "jpeg.encode"
	if err := prepare(ctx, op, img, core.FormatJPEG); err != nil {
		return nil, err
	}

	quality := opts.Quality
	if quality == 0 {
		quality = j.DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "quality %d not in 1..100", quality)
	}

	var src image.Image
	switch img.Colorspace {
	case core.ColorspaceI420, core.ColorspaceYV12, core.ColorspaceNV12:
		ycc, err := toYCbCr420(img)
		if err != nil {
			return nil, err
		}
		src = ycc
	default:
		n, err := toNRGBA(img)
		if err != nil {
			return nil, err
		}
		src = n
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	return buf.Bytes(), nil
}

func toYCbCr420(img *core.RawImage) (*image.YCbCr, error) {
	planes, err := core.Planes(img.Width, img.Height, img.Colorspace)
	if err != nil {
		return nil, err
	}
	ycc := image.NewYCbCr(image.Rect(0, 0, img.Width, img.Height), image.YCbCrSubsampleRatio420)
	copy(ycc.Y, planes[0].Bytes(img.Data))

	cw, ch := planes[1].Width, planes[1].Height
	switch img.Colorspace {
	case core.ColorspaceNV12:
		uv := planes[1].Bytes(img.Data)
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				ycc.Cb[y*ycc.CStride+x] = uv[2*(y*cw+x)]
				ycc.Cr[y*ycc.CStride+x] = uv[2*(y*cw+x)+1]
			}
		}
	default:
		u, v := planes[1].Bytes(img.Data), planes[2].Bytes(img.Data)
		if img.Colorspace == core.ColorspaceYV12 {
			u, v = v, u
		}
		for y := 0; y < ch; y++ {
			copy(ycc.Cb[y*ycc.CStride:y*ycc.CStride+cw], u[y*cw:])
			copy(ycc.Cr[y*ycc.CStride:y*ycc.CStride+cw], v[y*cw:])
		}
	}
	return ycc, nil
}
