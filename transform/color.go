package transform

import (
	"context"
	"image/color"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// MeanColor is a core.ColorExtractor returning the mean RGB of the image.
type MeanColor struct{}

func (MeanColor) ExtractColor(ctx context.Context, img *core.RawImage) (color.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return color.RGBA{}, apperrors.Wrap(apperrors.KindInvalidOperation, "color.mean", err)
	}
	if _, err := checkSource("color.mean", img); err != nil {
		return color.RGBA{}, err
	}
	pix, err := toRGBA(img)
	if err != nil {
		return color.RGBA{}, err
	}
	var rSum, gSum, bSum uint64
	for i := 0; i < len(pix); i += 4 {
		rSum += uint64(pix[i])
		gSum += uint64(pix[i+1])
		bSum += uint64(pix[i+2])
	}
	count := uint64(img.Width * img.Height)
	return color.RGBA{
		R: uint8(rSum / count),
		G: uint8(gSum / count),
		B: uint8(bSum / count),
		A: 0xff,
	}, nil
}
