// Package encoder provides format-specific image encoders.
package encoder

import (
	"context"
	"image"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/transform"
)

// prepare validates the raw input against the format's colorspace table.
func prepare(ctx context.Context, op string, img *core.RawImage, format core.Format) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if img == nil {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "nil image")
	}
	if _, err := core.NewRawImage(img.Width, img.Height, img.Colorspace, img.Data); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidParameter, op, err)
	}
	return core.CheckSupported(op, img.Colorspace, format)
}

// toNRGBA views img as an *image.NRGBA, converting when it is not already
// RGBA8888.  The returned image may share img.Data.
func toNRGBA(img *core.RawImage) (*image.NRGBA, error) {
	src := img
	if img.Colorspace != core.ColorspaceRGBA8888 {
		var err error
		if src, err = transform.Convert(img, core.ColorspaceRGBA8888); err != nil {
			return nil, err
		}
	}
	return &image.NRGBA{
		Pix:    src.Data,
		Stride: 4 * src.Width,
		Rect:   image.Rect(0, 0, src.Width, src.Height),
	}, nil
}
