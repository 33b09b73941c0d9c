package session

import (
	"context"
	"time"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Encode compresses one raw image to JPEG, PNG, BMP or a still GIF.
type Encode struct {
	base

	format core.Format

	hasResolution bool
	width, height int
	colorspace    core.Colorspace

	quality     int
	compression int

	input []byte // borrowed from the caller

	outPath  string
	toBuffer bool
}

// NewEncode returns an encode session for format.  Formats without a
// registered encoder fail with NotSupportedFormat.
func NewEncode(deps Deps, format core.Format) (*Encode, error) {
	if _, err := core.LookupEncoder(deps.Registry, format); err != nil {
		return nil, err
	}
	e := &Encode{
		base:       newBase(deps),
		format:     format,
		colorspace: core.ColorspaceRGBA8888,
	}
	if format == core.FormatJPEG {
		e.quality = e.deps.Config.DefaultQuality
	}
	if format == core.FormatPNG {
		e.compression = e.deps.Config.DefaultPNGCompression
	}
	return e, nil
}

// Format returns the target format.
func (e *Encode) Format() core.Format { return e.format }

func (e *Encode) SetResolution(width, height int) error {
	const op = "encode.resolution"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(op); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "%dx%d", width, height)
	}
	e.hasResolution, e.width, e.height = true, width, height
	return nil
}

func (e *Encode) SetColorspace(cs core.Colorspace) error {
	const op = "encode.colorspace"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(op); err != nil {
		return err
	}
	if !cs.Valid() {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "unknown colorspace %d", int(cs))
	}
	if err := core.CheckSupported(op, cs, e.format); err != nil {
		return err
	}
	e.colorspace = cs
	return nil
}

// SetQuality sets JPEG quality, 1..100.
func (e *Encode) SetQuality(q int) error {
	const op = "encode.quality"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(op); err != nil {
		return err
	}
	if e.format != core.FormatJPEG {
		return apperrors.Newf(apperrors.KindNotSupportedFormat, op, "quality applies to JPEG, not %s", e.format)
	}
	if q < 1 || q > 100 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "quality %d not in 1..100", q)
	}
	e.quality = q
	return nil
}

// SetPNGCompression sets the zlib level, 0..9.
func (e *Encode) SetPNGCompression(level int) error {
	const op = "encode.png_compression"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(op); err != nil {
		return err
	}
	if e.format != core.FormatPNG {
		return apperrors.Newf(apperrors.KindNotSupportedFormat, op, "compression applies to PNG, not %s", e.format)
	}
	if level < 0 || level > 9 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "compression %d not in 0..9", level)
	}
	e.compression = level
	return nil
}

// SetInputBuffer sets the raw pixels.  Its length is checked against the
// resolution and colorspace by Run.
func (e *Encode) SetInputBuffer(data []byte) error {
	const op = "encode.input_buffer"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(op); err != nil {
		return err
	}
	if len(data) == 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty buffer")
	}
	e.input = data
	return nil
}

// SetOutputPath writes the result to path, replacing a buffer output.
func (e *Encode) SetOutputPath(path string) error {
	const op = "encode.output_path"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(op); err != nil {
		return err
	}
	if path == "" {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty path")
	}
	e.outPath, e.toBuffer = path, false
	return nil
}

// SetOutputBuffer returns the result in CompressedImage.Data, replacing a
// path output.
func (e *Encode) SetOutputBuffer() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked("encode.output_buffer"); err != nil {
		return err
	}
	e.outPath, e.toBuffer = "", true
	return nil
}

// Run encodes the input.  On failure nothing is returned and no file is
// left at the output path.
func (e *Encode) Run(ctx context.Context) (*core.CompressedImage, error) {
	const op = "encode.run"
	e.mu.Lock()
	if err := e.beginLocked(op); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	req := encodeRequest{
		hasResolution: e.hasResolution,
		width:         e.width,
		height:        e.height,
		colorspace:    e.colorspace,
		opts:          core.EncodeOptions{Quality: e.quality, Compression: e.compression},
		input:         e.input,
		outPath:       e.outPath,
		toBuffer:      e.toBuffer,
	}
	e.mu.Unlock()
	defer e.end()

	out, err := e.run(ctx, req)
	if err != nil {
		e.logFailure(op, err)
		return nil, err
	}
	return out, nil
}

// encodeRequest is the session state Run works on, copied under the lock.
type encodeRequest struct {
	hasResolution bool
	width, height int
	colorspace    core.Colorspace
	opts          core.EncodeOptions
	input         []byte
	outPath       string
	toBuffer      bool
}

func (e *Encode) run(ctx context.Context, req encodeRequest) (*core.CompressedImage, error) {
	const op = "encode.run"
	switch {
	case !req.hasResolution:
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "resolution not set")
	case req.input == nil:
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "input buffer not set")
	case req.outPath == "" && !req.toBuffer:
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "output not set")
	}

	img, err := core.NewRawImage(req.width, req.height, req.colorspace, req.input)
	if err != nil {
		return nil, err
	}
	enc, err := core.LookupEncoder(e.deps.Registry, e.format)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.deps.Logger.Debug("encode.start",
		"session", e.id,
		"format", string(e.format),
		"width", req.width,
		"height", req.height,
		"colorspace", req.colorspace.String(),
	)
	data, err := enc.Encode(ctx, img, req.opts)
	if err != nil {
		return nil, err
	}

	out := &core.CompressedImage{
		Format:      e.format,
		Size:        int64(len(data)),
		Width:       req.width,
		Height:      req.height,
		Frames:      1,
		Quality:     req.opts.Quality,
		Compression: req.opts.Compression,
	}
	if req.toBuffer {
		out.Data = data
	} else {
		if err := e.deps.Store.WriteFile(ctx, req.outPath, data); err != nil {
			return nil, err
		}
		out.Path = req.outPath
	}
	e.deps.Logger.Debug("encode.done",
		"session", e.id,
		"bytes", out.Size,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Close releases the session's references.
func (e *Encode) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.closeLocked("encode.close"); err != nil {
		return err
	}
	e.input = nil
	return nil
}
