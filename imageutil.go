// Package imageutil decodes JPEG, PNG, GIF and BMP into raw pixel buffers,
// encodes raw buffers back into those formats, assembles animated GIFs, and
// resizes, rotates, crops and converts raw buffers between colorspaces.
//
// Work is organised in sessions (see package session) and transformations
// (see package pipeline).  Every call is synchronous; the *Async helpers run
// the same calls on the processor's worker pool and deliver one result on a
// channel.
package imageutil

import (
	"context"
	"image/color"
	"iter"
	"os"
	"sync"

	"github.com/Skryldev/image-util/adapters/decoder"
	"github.com/Skryldev/image-util/adapters/encoder"
	"github.com/Skryldev/image-util/adapters/storage"
	"github.com/Skryldev/image-util/config"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/hooks"
	"github.com/Skryldev/image-util/pipeline"
	"github.com/Skryldev/image-util/session"
	"github.com/Skryldev/image-util/transform"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	GIF  = core.FormatGIF
	BMP  = core.FormatBMP
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Processor is the primary entry point.  It is safe for concurrent use; the
// sessions it hands out are not.
type Processor struct {
	inner   *core.Processor
	reg     *core.DefaultRegistry
	store   core.FileStore
	metrics *hooks.InMemoryMetrics
	gif     *decoder.GIF

	mu        sync.RWMutex
	logger    core.Logger
	extractor core.ColorExtractor
}

// New creates a fully wired Processor with the JPEG, PNG, GIF and BMP codecs
// registered, a local file store, and a slog text logger on stderr at
// cfg.LogLevel.  The mean-colour extractor is installed by default.
func New(cfg config.Config) *Processor {
	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatGIF, decoder.NewGIF())
	reg.RegisterDecoder(core.FormatBMP, decoder.NewBMP())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.DefaultQuality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatGIF, encoder.NewGIF())
	reg.RegisterEncoder(core.FormatBMP, encoder.NewBMP())

	logger := hooks.NewTextLogger(os.Stderr, cfg.LogLevel)
	inner := core.New(cfg, reg)
	inner.SetLogger(logger)

	return &Processor{
		inner:     inner,
		reg:       reg,
		store:     storage.NewLocal(os.FileMode(cfg.Files.Permissions)),
		metrics:   hooks.NewInMemoryMetrics(),
		gif:       decoder.NewGIF(),
		logger:    logger,
		extractor: transform.MeanColor{},
	}
}

// SetLogger replaces the logger used by the processor, its worker pool and
// every session created afterwards.
func (p *Processor) SetLogger(l core.Logger) {
	if l == nil {
		l = core.NopLogger{}
	}
	p.mu.Lock()
	p.logger = l
	p.mu.Unlock()
	p.inner.SetLogger(l)
}

// SetFileStore replaces the store behind path inputs and outputs, e.g. with
// storage.NewS3.  It affects sessions created afterwards.
func (p *Processor) SetFileStore(s core.FileStore) {
	if s == nil {
		return
	}
	p.mu.Lock()
	p.store = s
	p.mu.Unlock()
}

// SetColorExtractor replaces the representative-colour algorithm.  A nil
// extractor disables ExtractColor.
func (p *Processor) SetColorExtractor(e core.ColorExtractor) {
	p.mu.Lock()
	p.extractor = e
	p.mu.Unlock()
}

// RegisterDecoder registers a custom decoder for the given format.
func (p *Processor) RegisterDecoder(f core.Format, d core.Decoder) { p.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (p *Processor) RegisterEncoder(f core.Format, e core.Encoder) { p.reg.RegisterEncoder(f, e) }

// Registry exposes the codec registry, e.g. for the libvips backend.
func (p *Processor) Registry() core.Registry { return p.reg }

// Start starts the background worker pool.
func (p *Processor) Start() { p.inner.Start() }

// Stop drains and shuts down the worker pool.
func (p *Processor) Stop() { p.inner.Stop() }

// Stats returns lightweight job statistics.
func (p *Processor) Stats() (processed, errors int64) {
	return p.inner.ProcessedCount(), p.inner.ErrorCount()
}

// Metrics returns the step timings gathered from transformations.
func (p *Processor) Metrics() hooks.MetricsSnapshot { return p.metrics.Snapshot() }

func (p *Processor) deps() session.Deps {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return session.Deps{
		Registry: p.reg,
		Store:    p.store,
		Logger:   p.logger,
		Config:   p.inner.Config(),
	}
}

// ── Sessions ──────────────────────────────────────────────────────────────────

// NewDecodeSession returns a decode session producing RGBA8888.
func (p *Processor) NewDecodeSession() *session.Decode { return session.NewDecode(p.deps()) }

// NewEncodeSession returns an encode session for format.
func (p *Processor) NewEncodeSession(format core.Format) (*session.Encode, error) {
	return session.NewEncode(p.deps(), format)
}

// NewAnimationSession returns an empty animated GIF session.
func (p *Processor) NewAnimationSession() *session.Animation {
	return session.NewAnimation(p.deps())
}

// NewTransformation returns a transformation whose steps are logged and
// timed into Metrics.
func (p *Processor) NewTransformation() *pipeline.Transformation {
	p.mu.RLock()
	logger := p.logger
	p.mu.RUnlock()
	return pipeline.NewTransformation(hooks.NewLoggingHook(logger), hooks.NewMetricsHook(p.metrics))
}

// DecodeAnimation decodes every frame of a GIF as RGBA8888, subject to
// Config.MaxPixels.
func (p *Processor) DecodeAnimation(ctx context.Context, data []byte) (*decoder.Animation, error) {
	return p.gif.DecodeAll(ctx, data, p.inner.Config().MaxPixels)
}

// ReadFile reads a whole file through the processor's file store,
// subject to Config.MaxImageBytes.
func (p *Processor) ReadFile(ctx context.Context, path string) ([]byte, error) {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if limit := p.inner.Config().MaxImageBytes; limit > 0 && int64(len(data)) > limit {
		return nil, apperrors.Newf(apperrors.KindOutOfMemory, "read_file", "%s is %d bytes, limit %d", path, len(data), limit)
	}
	return data, nil
}

// ── Introspection ─────────────────────────────────────────────────────────────

// SupportedColorspaces yields the colorspaces format can decode to and
// encode from, in descending enum order.
func SupportedColorspaces(format core.Format) iter.Seq[core.Colorspace] {
	return core.SupportedColorspaces(format)
}

// BufferSize returns the byte length of a width x height image in cs.
func BufferSize(width, height int, cs core.Colorspace) (int, error) {
	return core.ComputeSize(width, height, cs)
}

// ── Representative colour ─────────────────────────────────────────────────────

// ExtractColor returns the representative colour of a packed RGB888 buffer.
func (p *Processor) ExtractColor(ctx context.Context, buf []byte, width, height int) (color.RGBA, error) {
	const op = "extract_color"
	p.mu.RLock()
	ex := p.extractor
	p.mu.RUnlock()
	if ex == nil {
		return color.RGBA{}, apperrors.Newf(apperrors.KindInvalidOperation, op, "no colour extractor installed")
	}
	img, err := core.NewRawImage(width, height, core.ColorspaceRGB888, buf)
	if err != nil {
		return color.RGBA{}, err
	}
	return ex.ExtractColor(ctx, img)
}
