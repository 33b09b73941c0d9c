package core

import (
	"context"
	"image/color"
	"io"
)

// Decoder converts a compressed bitstream into a RawImage.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode parses data and returns pixels in opts.Colorspace.
	Decode(ctx context.Context, data []byte, opts DecodeOptions) (*RawImage, error)
	// CanDecode reports whether this decoder handles the given format.
	CanDecode(format Format) bool
}

// Encoder serialises a RawImage to bytes in a target format.
// Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, img *RawImage, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// FileStore is the file I/O collaborator behind path inputs and outputs.
// The implementation lives in adapters/storage/.
type FileStore interface {
	// ReadHeader returns up to n leading bytes of the file at path.
	ReadHeader(ctx context.Context, path string, n int) ([]byte, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	// Create opens path for streaming writes, truncating it.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	Remove(ctx context.Context, path string) error
}

// ColorExtractor computes a representative colour for an image.  The
// engine has no built-in dependency on any particular algorithm; callers
// inject one.
type ColorExtractor interface {
	ExtractColor(ctx context.Context, img *RawImage) (color.RGBA, error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordProcessingTime(stepName string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordError(stepName string, kind string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
