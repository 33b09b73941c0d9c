package decoder

import (
	"bytes"
	"context"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// BMP decodes uncompressed 8, 24 and 32 bit Windows bitmaps.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (d *BMP) CanDecode(format core.Format) bool { return format == core.FormatBMP }

func (d *BMP) Decode(ctx context.Context, data []byte, opts core.DecodeOptions) (*core.RawImage, error) {
	const op = "bmp.decode"
	if err := prepare(ctx, op, data, core.FormatBMP, opts); err != nil {
		return nil, err
	}

	cfg, err := bmp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if err := checkPixels(op, cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		return nil, err
	}

	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	b := img.Bounds()
	return finish(op, nrgbaPix(img), b.Dx(), b.Dy(), opts.Colorspace)
}
