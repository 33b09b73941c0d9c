package decoder

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/gif"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// GIF decodes GIF images.  Decode returns the first frame composited onto a
// transparent canvas the size of the logical screen; DecodeAll returns every
// frame with its timing.
type GIF struct{}

func NewGIF() *GIF { return &GIF{} }

func (d *GIF) CanDecode(format core.Format) bool { return format == core.FormatGIF }

func (d *GIF) Decode(ctx context.Context, data []byte, opts core.DecodeOptions) (*core.RawImage, error) {
	const op = "gif.decode"
	if err := prepare(ctx, op, data, core.FormatGIF, opts); err != nil {
		return nil, err
	}

	cfg, err := gif.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if err := checkPixels(op, cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		return nil, err
	}

	img, err := gif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	b := img.Bounds().Intersect(canvas.Bounds())
	draw.Draw(canvas, b, img, b.Min, draw.Over)
	return finish(op, canvas.Pix, cfg.Width, cfg.Height, opts.Colorspace)
}

// Frame is one decoded animation frame.  Image covers only the frame
// rectangle, placed at (X, Y) on the canvas.
type Frame struct {
	Image    *core.RawImage
	X, Y     int
	Delay    int // hundredths of a second
	Disposal byte
}

// Animation is a fully decoded GIF.
type Animation struct {
	Width, Height int
	// LoopCount follows image/gif: 0 loops forever, -1 plays once.
	LoopCount int
	Frames    []Frame
}

// DecodeAll decodes every frame as RGBA8888.
func (d *GIF) DecodeAll(ctx context.Context, data []byte, maxPixels int64) (*Animation, error) {
	const op = "gif.decode_all"
	if err := prepare(ctx, op, data, core.FormatGIF, DefaultOptions()); err != nil {
		return nil, err
	}

	cfg, err := gif.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if err := checkPixels(op, cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, err
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}

	anim := &Animation{
		Width:     g.Config.Width,
		Height:    g.Config.Height,
		LoopCount: g.LoopCount,
		Frames:    make([]Frame, 0, len(g.Image)),
	}
	for i, p := range g.Image {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
		}
		b := p.Bounds()
		raw, err := core.NewRawImage(b.Dx(), b.Dy(), core.ColorspaceRGBA8888, nrgbaPix(p))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
		}
		f := Frame{Image: raw, X: b.Min.X, Y: b.Min.Y}
		if i < len(g.Delay) {
			f.Delay = g.Delay[i]
		}
		if i < len(g.Disposal) {
			f.Disposal = g.Disposal[i]
		}
		anim.Frames = append(anim.Frames, f)
	}
	return anim, nil
}
