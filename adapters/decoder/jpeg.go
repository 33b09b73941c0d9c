package decoder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// JPEG decodes JPEG images using the standard library.  Downscaled decodes
// box-filter the full-size image; the vips backend shrinks during decode
// instead.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool { return format == core.FormatJPEG }

func (j *JPEG) Decode(ctx context.Context, data []byte, opts core.DecodeOptions) (*core.RawImage, error) {
	const op = "jpeg.decode"
	if err := prepare(ctx, op, data, core.FormatJPEG, opts); err != nil {
		return nil, err
	}
	scale := opts.Downscale
	if scale == 0 {
		scale = core.Downscale1
	}
	if !scale.Valid() {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "downscale 1/%d not in {1, 1/2, 1/4, 1/8}", int(scale))
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	width, height := scale.Apply(cfg.Width), scale.Apply(cfg.Height)
	if err := checkPixels(op, cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		return nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}

	if scale == core.Downscale1 {
		if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 {
			switch opts.Colorspace {
			case core.ColorspaceI420, core.ColorspaceYV12, core.ColorspaceNV12:
				return fromYCbCr420(ycc, opts.Colorspace)
			}
		}
	} else {
		img = imaging.Resize(img, width, height, imaging.Box)
	}
	return finish(op, nrgbaPix(img), width, height, opts.Colorspace)
}

// fromYCbCr420 copies the decoder's planes straight into a 4:2:0 layout.
func fromYCbCr420(ycc *image.YCbCr, cs core.Colorspace) (*core.RawImage, error) {
	w, h := ycc.Rect.Dx(), ycc.Rect.Dy()
	dst, err := core.AllocRawImage(w, h, cs)
	if err != nil {
		return nil, err
	}
	planes, err := core.Planes(w, h, cs)
	if err != nil {
		return nil, err
	}
	cw, ch := planes[1].Width, planes[1].Height

	luma := planes[0].Bytes(dst.Data)
	for y := 0; y < h; y++ {
		copy(luma[y*w:(y+1)*w], ycc.Y[y*ycc.YStride:])
	}

	switch cs {
	case core.ColorspaceNV12:
		uv := planes[1].Bytes(dst.Data)
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				uv[2*(y*cw+x)] = ycc.Cb[y*ycc.CStride+x]
				uv[2*(y*cw+x)+1] = ycc.Cr[y*ycc.CStride+x]
			}
		}
	default:
		u, v := planes[1].Bytes(dst.Data), planes[2].Bytes(dst.Data)
		if cs == core.ColorspaceYV12 {
			u, v = v, u
		}
		for y := 0; y < ch; y++ {
			copy(u[y*cw:(y+1)*cw], ycc.Cb[y*ycc.CStride:])
			copy(v[y*cw:(y+1)*cw], ycc.Cr[y*ycc.CStride:])
		}
	}
	return dst, nil
}
