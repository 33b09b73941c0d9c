package pipeline

import (
	"context"

	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/transform"
)

// ── Resize ────────────────────────────────────────────────────────────────────

// ResizeStep scales the image to Width x Height.  4:2:2 layouts may come
// back one column narrower; read the result's Width.
type ResizeStep struct {
	Width, Height int
	// Resampler controls quality vs speed.  Defaults to draw.BiLinear.
	Resampler xdraw.Interpolator
}

func (s *ResizeStep) Name() string { return "resize" }

func (s *ResizeStep) Execute(ctx context.Context, img *core.RawImage) (*core.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, s.Name(), err)
	}
	sampler := s.Resampler
	if sampler == nil {
		sampler = xdraw.BiLinear
	}
	return transform.ResizeWith(img, s.Width, s.Height, sampler)
}

// ── Crop ──────────────────────────────────────────────────────────────────────

// CropStep crops a rectangle from the image.
type CropStep struct {
	X, Y, Width, Height int
}

func (s *CropStep) Name() string { return "crop" }

func (s *CropStep) Execute(ctx context.Context, img *core.RawImage) (*core.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, s.Name(), err)
	}
	return transform.Crop(img, s.X, s.Y, s.Width, s.Height)
}

// ── Colorspace conversion ─────────────────────────────────────────────────────

// ConvertStep re-encodes pixels into another colorspace.
type ConvertStep struct {
	Colorspace core.Colorspace
}

func (s *ConvertStep) Name() string { return "convert" }

func (s *ConvertStep) Execute(ctx context.Context, img *core.RawImage) (*core.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, s.Name(), err)
	}
	return transform.Convert(img, s.Colorspace)
}

// ── Rotate ────────────────────────────────────────────────────────────────────

// RotateStep rotates clockwise or flips.
type RotateStep struct {
	Rotation core.Rotation
}

func (s *RotateStep) Name() string { return "rotate" }

func (s *RotateStep) Execute(ctx context.Context, img *core.RawImage) (*core.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, s.Name(), err)
	}
	return transform.Rotate(img, s.Rotation)
}

// compile-time interface checks
var (
	_ core.Step = (*ResizeStep)(nil)
	_ core.Step = (*CropStep)(nil)
	_ core.Step = (*ConvertStep)(nil)
	_ core.Step = (*RotateStep)(nil)
)
