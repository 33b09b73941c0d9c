//go:build vips

// Package vips provides a libvips-backed JPEG decoder.  libvips shrinks
// during decode, so a 1/8 decode never allocates the full-size bitmap.
// Build with -tags vips; the package needs cgo and libvips.
package vips

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/transform"
	"github.com/Skryldev/image-util/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Backend is a libvips-powered JPEG Decoder.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(f core.Format) bool { return f == core.FormatJPEG }

func (b *Backend) Decode(ctx context.Context, data []byte, opts core.DecodeOptions) (*core.RawImage, error) {
	const op = "vips.decode"
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if core.Format(utils.DetectFormat(data)) != core.FormatJPEG {
		return nil, apperrors.Newf(apperrors.KindNotSupportedFormat, op, "input is not JPEG")
	}
	if err := core.CheckSupported(op, opts.Colorspace, core.FormatJPEG); err != nil {
		return nil, err
	}
	scale := opts.Downscale
	if scale == 0 {
		scale = core.Downscale1
	}
	if !scale.Valid() {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "downscale 1/%d", int(scale))
	}

	params := govips.NewImportParams()
	params.JpegShrinkFactor.Set(int(scale))
	ref, err := govips.LoadImageFromBuffer(data, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	defer ref.Close()

	if opts.MaxPixels > 0 && int64(ref.Width())*int64(ref.Height()) > opts.MaxPixels {
		return nil, apperrors.Newf(apperrors.KindOutOfMemory, op, "%dx%d exceeds %d pixels", ref.Width(), ref.Height(), opts.MaxPixels)
	}

	// PNG at level 0 is the cheapest lossless hand-off out of libvips.
	ep := govips.NewPngExportParams()
	ep.Compression = 0
	buf, _, err := ref.ExportPng(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op+".export", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op+".export", err)
	}

	bounds := img.Bounds()
	pix := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(pix, pix.Rect, img, bounds.Min, draw.Src)
	raw, err := core.NewRawImage(bounds.Dx(), bounds.Dy(), core.ColorspaceRGBA8888, pix.Pix)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if opts.Colorspace == core.ColorspaceRGBA8888 {
		return raw, nil
	}
	return transform.Convert(raw, opts.Colorspace)
}

// ─── RegisterVipsBackend ──────────────────────────────────────────────────────

// RegisterVipsBackend replaces the stdlib JPEG decoder with libvips.
func RegisterVipsBackend(reg core.Registry, b *Backend) {
	reg.RegisterDecoder(core.FormatJPEG, b)
}

// compile-time interface checks
var _ core.Decoder = (*Backend)(nil)
