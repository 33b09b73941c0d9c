package core

import (
	"sync"

	apperrors "github.com/Skryldev/image-util/errors"
)

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	decoders map[Format]Decoder
	encoders map[Format]Encoder
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		decoders: make(map[Format]Decoder),
		encoders: make(map[Format]Encoder),
	}
}

func (r *DefaultRegistry) RegisterDecoder(f Format, d Decoder) {
	r.mu.Lock()
	r.decoders[f] = d
	r.mu.Unlock()
}

func (r *DefaultRegistry) RegisterEncoder(f Format, e Encoder) {
	r.mu.Lock()
	r.encoders[f] = e
	r.mu.Unlock()
}

func (r *DefaultRegistry) DecoderFor(f Format) (Decoder, bool) {
	r.mu.RLock()
	d, ok := r.decoders[f]
	r.mu.RUnlock()
	return d, ok && d.CanDecode(f)
}

func (r *DefaultRegistry) EncoderFor(f Format) (Encoder, bool) {
	r.mu.RLock()
	e, ok := r.encoders[f]
	r.mu.RUnlock()
	return e, ok && e.CanEncode(f)
}

// LookupDecoder is DecoderFor with a NotSupportedFormat error on a miss.
func LookupDecoder(reg Registry, f Format) (Decoder, error) {
	if d, ok := reg.DecoderFor(f); ok {
		return d, nil
	}
	return nil, apperrors.Newf(apperrors.KindNotSupportedFormat, "registry.decoder", "no decoder for %s", f)
}

// LookupEncoder is EncoderFor with a NotSupportedFormat error on a miss.
func LookupEncoder(reg Registry, f Format) (Encoder, error) {
	if e, ok := reg.EncoderFor(f); ok {
		return e, nil
	}
	return nil, apperrors.Newf(apperrors.KindNotSupportedFormat, "registry.encoder", "no encoder for %s", f)
}
