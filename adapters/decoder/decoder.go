// Package decoder provides format-specific image decoders.
package decoder

import (
	"context"
	"image"
	"image/draw"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/transform"
	"github.com/Skryldev/image-util/utils"
)

// DefaultOptions returns decode options for RGBA8888 output at full size.
func DefaultOptions() core.DecodeOptions {
	return core.DecodeOptions{Colorspace: core.ColorspaceRGBA8888, Downscale: core.Downscale1}
}

// prepare runs the checks every decoder shares, in order: cancellation,
// magic bytes, target colorspace, downscale.
func prepare(ctx context.Context, op string, data []byte, format core.Format, opts core.DecodeOptions) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if len(data) == 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty input")
	}
	if got := core.Format(utils.DetectFormat(data)); got != format {
		return apperrors.Newf(apperrors.KindNotSupportedFormat, op, "input is %s, not %s", got, format)
	}
	if err := core.CheckSupported(op, opts.Colorspace, format); err != nil {
		return err
	}
	if format != core.FormatJPEG && opts.Downscale > core.Downscale1 {
		return apperrors.Newf(apperrors.KindNotSupportedFormat, op, "downscale is JPEG only")
	}
	return nil
}

// checkPixels enforces the decoded pixel cap before pixels are allocated.
func checkPixels(op string, width, height int, limit int64) error {
	if width <= 0 || height <= 0 {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "bitstream declares %dx%d", width, height)
	}
	if limit > 0 && int64(width)*int64(height) > limit {
		return apperrors.Newf(apperrors.KindOutOfMemory, op, "%dx%d exceeds %d pixels", width, height, limit)
	}
	return nil
}

// nrgbaPix returns img as tightly packed straight-alpha RGBA bytes.
func nrgbaPix(img image.Image) []byte {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n.Pix[:4*b.Dx()*b.Dy()]
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}

// finish wraps RGBA pixels and converts them to the requested colorspace.
func finish(op string, pix []byte, width, height int, cs core.Colorspace) (*core.RawImage, error) {
	img, err := core.NewRawImage(width, height, core.ColorspaceRGBA8888, pix)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if cs == core.ColorspaceRGBA8888 {
		return img, nil
	}
	return transform.Convert(img, cs)
}
