package decoder

import (
	"bytes"
	"context"
	"image/png"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// PNG decodes PNG images using the standard library.  Output is always
// RGBA8888.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG
}

func (p *PNG) Decode(ctx context.Context, data []byte, opts core.DecodeOptions) (*core.RawImage, error) {
	const op = "png.decode"
	if err := prepare(ctx, op, data, core.FormatPNG, opts); err != nil {
		return nil, err
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if err := checkPixels(op, cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	b := img.Bounds()
	return finish(op, nrgbaPix(img), b.Dx(), b.Dy(), opts.Colorspace)
}
