package pipeline

import (
	"context"
	"image"
	"sync"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Transformation collects the operations of one transform request and runs
// them in a fixed order: crop or resize, then colorspace conversion, then
// rotation.  Resize and crop exclude each other.
//
// Setters may be called from any goroutine; Run works on a snapshot.
type Transformation struct {
	mu    sync.Mutex
	hooks []core.Hook

	hasColorspace bool
	colorspace    core.Colorspace

	hasResolution bool
	width, height int

	hasRotation bool
	rotation    core.Rotation

	hasCrop bool
	crop    image.Rectangle
}

// NewTransformation returns an empty request.  hooks observe every step Run
// executes.
func NewTransformation(hooks ...core.Hook) *Transformation {
	return &Transformation{hooks: hooks}
}

func (t *Transformation) SetColorspace(cs core.Colorspace) error {
	if !cs.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, "transformation.colorspace", "unknown colorspace %d", int(cs))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasColorspace, t.colorspace = true, cs
	return nil
}

// SetResolution requests a resize.  It fails with InvalidOperation while a
// crop area is set.
func (t *Transformation) SetResolution(width, height int) error {
	const op = "transformation.resolution"
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasCrop {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "crop area already set")
	}
	if width <= 0 || height <= 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "%dx%d", width, height)
	}
	t.hasResolution, t.width, t.height = true, width, height
	return nil
}

func (t *Transformation) SetRotation(r core.Rotation) error {
	if !r.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, "transformation.rotation", "unknown rotation %d", int(r))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasRotation, t.rotation = true, r
	return nil
}

// SetCropArea requests a crop of the half-open rectangle
// [startX, endX) x [startY, endY).  It fails with InvalidOperation while a
// resolution is set.
func (t *Transformation) SetCropArea(startX, startY, endX, endY int) error {
	const op = "transformation.crop_area"
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasResolution {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "resolution already set")
	}
	if startX < 0 || startY < 0 || endX <= startX || endY <= startY {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "(%d,%d)-(%d,%d)", startX, startY, endX, endY)
	}
	t.hasCrop, t.crop = true, image.Rect(startX, startY, endX, endY)
	return nil
}

func (t *Transformation) ClearResolution() {
	t.mu.Lock()
	t.hasResolution, t.width, t.height = false, 0, 0
	t.mu.Unlock()
}

func (t *Transformation) ClearCropArea() {
	t.mu.Lock()
	t.hasCrop, t.crop = false, image.Rectangle{}
	t.mu.Unlock()
}

// ── Getters ───────────────────────────────────────────────────────────────────

func (t *Transformation) Colorspace() (core.Colorspace, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasColorspace {
		return 0, apperrors.Newf(apperrors.KindInvalidOperation, "transformation.colorspace", "not set")
	}
	return t.colorspace, nil
}

func (t *Transformation) Resolution() (width, height int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasResolution {
		return 0, 0, apperrors.Newf(apperrors.KindInvalidOperation, "transformation.resolution", "not set")
	}
	return t.width, t.height, nil
}

func (t *Transformation) Rotation() (core.Rotation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasRotation {
		return 0, apperrors.Newf(apperrors.KindInvalidOperation, "transformation.rotation", "not set")
	}
	return t.rotation, nil
}

func (t *Transformation) CropArea() (startX, startY, endX, endY int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasCrop {
		return 0, 0, 0, 0, apperrors.Newf(apperrors.KindInvalidOperation, "transformation.crop_area", "not set")
	}
	return t.crop.Min.X, t.crop.Min.Y, t.crop.Max.X, t.crop.Max.Y, nil
}

// ── Run ───────────────────────────────────────────────────────────────────────

// Pipeline builds the step sequence for the current settings.
func (t *Transformation) Pipeline() (*Pipeline, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buildLocked()
}

func (t *Transformation) buildLocked() (*Pipeline, error) {
	if !t.hasColorspace && !t.hasResolution && !t.hasRotation && !t.hasCrop {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "transformation.run", "no operation set")
	}

	p := New().AddHook(t.hooks...)
	switch {
	case t.hasCrop:
		p.Use(&CropStep{X: t.crop.Min.X, Y: t.crop.Min.Y, Width: t.crop.Dx(), Height: t.crop.Dy()})
	case t.hasResolution:
		p.Use(&ResizeStep{Width: t.width, Height: t.height})
	}
	if t.hasColorspace {
		p.Use(&ConvertStep{Colorspace: t.colorspace})
	}
	if t.hasRotation && t.rotation != core.RotateNone {
		p.Use(&RotateStep{Rotation: t.rotation})
	}
	return p, nil
}

// Run applies the request to src and returns a new image; src is left
// untouched.  Rotation eligibility and the crop rectangle are checked
// before any step runs.
func (t *Transformation) Run(ctx context.Context, src *core.RawImage) (*core.RawImage, error) {
	const op = "transformation.run"
	if src == nil {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "nil source")
	}
	if _, err := core.NewRawImage(src.Width, src.Height, src.Colorspace, src.Data); err != nil {
		return nil, err
	}

	t.mu.Lock()
	p, err := t.buildLocked()
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	final := src.Colorspace
	if t.hasColorspace {
		final = t.colorspace
	}
	rotating := t.hasRotation && t.rotation != core.RotateNone
	crop, hasCrop := t.crop, t.hasCrop
	t.mu.Unlock()

	if rotating && !core.RotationSupported(final) {
		return nil, apperrors.Newf(apperrors.KindNotSupportedFormat, op, "%s cannot be rotated", final)
	}
	if hasCrop && !crop.In(image.Rect(0, 0, src.Width, src.Height)) {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "crop %v outside %dx%d", crop, src.Width, src.Height)
	}

	out, _, err := p.Run(ctx, src)
	if err != nil {
		return nil, err
	}
	if out == src {
		out = src.Clone()
	}
	return out, nil
}
