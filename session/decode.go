package session

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/utils"
)

// Decode turns one compressed image into raw pixels.  The format is taken
// from the input's magic bytes.
type Decode struct {
	base

	path   string
	data   []byte // borrowed from the caller
	format core.Format

	colorspace core.Colorspace
	downscale  core.Downscale
}

// NewDecode returns a decode session producing RGBA8888 at full size.
func NewDecode(deps Deps) *Decode {
	return &Decode{
		base:       newBase(deps),
		format:     core.FormatUnknown,
		colorspace: core.ColorspaceRGBA8888,
		downscale:  core.Downscale1,
	}
}

// SetInputPath selects a file input, replacing any buffer input.  Only the
// header is read here; the file is read in full by Run.
func (d *Decode) SetInputPath(ctx context.Context, path string) error {
	const op = "decode.input_path"
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usableLocked(op); err != nil {
		return err
	}
	if path == "" {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty path")
	}
	head, err := d.deps.Store.ReadHeader(ctx, path, utils.HeaderLen)
	if err != nil {
		return err
	}
	format, err := sniff(op, head)
	if err != nil {
		return err
	}
	d.path, d.data, d.format = path, nil, format
	return nil
}

// SetInputBuffer selects an in-memory input, replacing any path input.
// data is read, never modified, and must stay valid until Run returns.
func (d *Decode) SetInputBuffer(data []byte) error {
	const op = "decode.input_buffer"
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usableLocked(op); err != nil {
		return err
	}
	if len(data) == 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty buffer")
	}
	format, err := sniff(op, data)
	if err != nil {
		return err
	}
	d.path, d.data, d.format = "", data, format
	return nil
}

// SetInputReader drains r into memory, bounded by Config.MaxImageBytes.
func (d *Decode) SetInputReader(ctx context.Context, r io.Reader) error {
	const op = "decode.input_reader"
	if r == nil {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "nil reader")
	}
	d.mu.Lock()
	err := d.usableLocked(op)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	cfg := d.deps.Config
	buf, err := utils.DrainReader(ctx, &utils.LimitedReader{R: r, Max: cfg.MaxImageBytes}, cfg.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrLimitExceeded) {
			return apperrors.Newf(apperrors.KindOutOfMemory, op, "input exceeds %d bytes", cfg.MaxImageBytes)
		}
		return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return d.SetInputBuffer(data)
}

// SetColorspace selects the output layout.  Support for the input's format
// is checked here when the input is known, and again by Run.
func (d *Decode) SetColorspace(cs core.Colorspace) error {
	const op = "decode.colorspace"
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usableLocked(op); err != nil {
		return err
	}
	if !cs.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "unknown colorspace %d", int(cs))
	}
	if d.format != core.FormatUnknown {
		if err := core.CheckSupported(op, cs, d.format); err != nil {
			return err
		}
	}
	d.colorspace = cs
	return nil
}

// SetDownscale selects a JPEG decode-time reduction.
func (d *Decode) SetDownscale(s core.Downscale) error {
	const op = "decode.downscale"
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usableLocked(op); err != nil {
		return err
	}
	if !s.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "downscale 1/%d not in {1, 1/2, 1/4, 1/8}", int(s))
	}
	if d.format != core.FormatUnknown && d.format != core.FormatJPEG && s != core.Downscale1 {
		return apperrors.Newf(apperrors.KindNotSupportedFormat, op, "downscale is JPEG only, input is %s", d.format)
	}
	d.downscale = s
	return nil
}

// Format reports the detected input format.
func (d *Decode) Format() (core.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.format == core.FormatUnknown {
		return core.FormatUnknown, apperrors.Newf(apperrors.KindInvalidOperation, "decode.format", "no input set")
	}
	return d.format, nil
}

// Run decodes the input.  The returned image belongs to the caller.
func (d *Decode) Run(ctx context.Context) (*core.RawImage, error) {
	const op = "decode.run"
	d.mu.Lock()
	if err := d.beginLocked(op); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	path, data, format := d.path, d.data, d.format
	opts := core.DecodeOptions{
		Colorspace: d.colorspace,
		Downscale:  d.downscale,
		MaxPixels:  d.deps.Config.MaxPixels,
	}
	d.mu.Unlock()
	defer d.end()

	img, err := d.run(ctx, path, data, format, opts)
	if err != nil {
		d.logFailure(op, err)
		return nil, err
	}
	return img, nil
}

func (d *Decode) run(ctx context.Context, path string, data []byte, format core.Format, opts core.DecodeOptions) (*core.RawImage, error) {
	const op = "decode.run"
	if format == core.FormatUnknown {
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "no input set")
	}
	if err := core.CheckSupported(op, opts.Colorspace, format); err != nil {
		return nil, err
	}
	dec, err := core.LookupDecoder(d.deps.Registry, format)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if data, err = d.deps.Store.ReadFile(ctx, path); err != nil {
			return nil, err
		}
		if limit := d.deps.Config.MaxImageBytes; limit > 0 && int64(len(data)) > limit {
			return nil, apperrors.Newf(apperrors.KindOutOfMemory, op, "%s is %d bytes, limit %d", path, len(data), limit)
		}
	}

	start := time.Now()
	d.deps.Logger.Debug("decode.start",
		"session", d.id,
		"format", string(format),
		"colorspace", opts.Colorspace.String(),
		"downscale", int(opts.Downscale),
	)
	img, err := dec.Decode(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	d.deps.Logger.Debug("decode.done",
		"session", d.id,
		"width", img.Width,
		"height", img.Height,
		"bytes", len(img.Data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return img, nil
}

// Close releases the session's references.  The caller's buffers are left
// alone.
func (d *Decode) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.closeLocked("decode.close"); err != nil {
		return err
	}
	d.data, d.path = nil, ""
	return nil
}

func sniff(op string, head []byte) (core.Format, error) {
	format := core.Format(utils.DetectFormat(head))
	if !format.Valid() {
		return core.FormatUnknown, apperrors.Newf(apperrors.KindNotSupportedFormat, op, "unrecognised header % x", head)
	}
	return format, nil
}
