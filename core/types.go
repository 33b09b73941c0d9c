package core

import (
	"context"
	"time"

	apperrors "github.com/Skryldev/image-util/errors"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatUnknown Format = "unknown"
)

// Formats lists every codec the engine knows, in table order.
var Formats = []Format{FormatJPEG, FormatPNG, FormatGIF, FormatBMP}

// Valid reports whether f is one of Formats.
func (f Format) Valid() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP:
		return true
	}
	return false
}

// ParseFormat maps a name or file extension ("jpg", ".png") to a Format.
func ParseFormat(s string) Format {
	switch s {
	case "jpeg", "jpg", ".jpeg", ".jpg", "JPEG", "JPG":
		return FormatJPEG
	case "png", ".png", "PNG":
		return FormatPNG
	case "gif", ".gif", "GIF":
		return FormatGIF
	case "bmp", ".bmp", "BMP":
		return FormatBMP
	}
	return FormatUnknown
}

// Rotation is a rotation or flip applied by the transform engine.
// Angles are clockwise.
type Rotation int

const (
	RotateNone Rotation = iota
	Rotate90
	Rotate180
	Rotate270
	FlipHorizontal
	FlipVertical
)

func (r Rotation) Valid() bool { return r >= RotateNone && r <= FlipVertical }

func (r Rotation) String() string {
	switch r {
	case RotateNone:
		return "none"
	case Rotate90:
		return "90"
	case Rotate180:
		return "180"
	case Rotate270:
		return "270"
	case FlipHorizontal:
		return "flip-horizontal"
	case FlipVertical:
		return "flip-vertical"
	}
	return "invalid"
}

// Downscale is the JPEG decode-time reduction factor, stored as the
// denominator: Downscale4 decodes at 1/4 of the original size.
type Downscale int

const (
	Downscale1 Downscale = 1
	Downscale2 Downscale = 2
	Downscale4 Downscale = 4
	Downscale8 Downscale = 8
)

func (d Downscale) Valid() bool {
	switch d {
	case Downscale1, Downscale2, Downscale4, Downscale8:
		return true
	}
	return false
}

// Apply returns the decoded size of a dimension, rounding up like libjpeg.
func (d Downscale) Apply(n int) int {
	if d <= 1 {
		return n
	}
	return (n + int(d) - 1) / int(d)
}

// RawImage is an uncompressed pixel buffer.  len(Data) always equals
// ComputeSize(Width, Height, Colorspace).
type RawImage struct {
	Data       []byte
	Width      int
	Height     int
	Colorspace Colorspace
}

// NewRawImage validates data against the computed size for the layout.
// data is borrowed, not copied.
func NewRawImage(width, height int, cs Colorspace, data []byte) (*RawImage, error) {
	size, err := ComputeSize(width, height, cs)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "raw.new",
			"buffer is %d bytes, %dx%d %s needs %d", len(data), width, height, cs, size)
	}
	return &RawImage{Data: data, Width: width, Height: height, Colorspace: cs}, nil
}

// AllocRawImage allocates a zeroed buffer for the layout.
func AllocRawImage(width, height int, cs Colorspace) (*RawImage, error) {
	size, err := ComputeSize(width, height, cs)
	if err != nil {
		return nil, err
	}
	return &RawImage{Data: make([]byte, size), Width: width, Height: height, Colorspace: cs}, nil
}

// Clone returns a deep copy.
func (r *RawImage) Clone() *RawImage {
	out := *r
	out.Data = make([]byte, len(r.Data))
	copy(out.Data, r.Data)
	return &out
}

// CompressedImage is an encoded bitstream.  When the session wrote to a file,
// Data is nil and Path names the file; Size is always the encoded byte count.
type CompressedImage struct {
	Data   []byte
	Path   string
	Format Format
	Size   int64

	Width, Height int
	Frames        int

	// Parameters actually used; zero when not applicable to Format.
	Quality     int
	Compression int
}

// DecodeOptions carries per-call decode parameters.
type DecodeOptions struct {
	Colorspace Colorspace
	Downscale  Downscale // JPEG only; 0 behaves as Downscale1
	MaxPixels  int64     // 0 = no limit
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality     int // JPEG 1-100
	Compression int // PNG 0-9
}

// Job encapsulates a single unit of work for the worker pool.
type Job struct {
	ID  string
	Ctx context.Context //nolint:containedctx // intentional for async jobs
	Run func(ctx context.Context) (JobOutput, error)
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult

	queued time.Time
}

// JobOutput holds whichever artefact the job produced.
type JobOutput struct {
	Raw        *RawImage
	Compressed *CompressedImage
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID  string
	Output JobOutput
	Err    error
}

// Step is one pixel transform in a pipeline.  Each Step must leave its input
// untouched and be safe for concurrent use across goroutines.
type Step interface {
	Name() string
	Execute(ctx context.Context, img *RawImage) (*RawImage, error)
}

// Hook is an optional observer invoked around pipeline steps.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, img *RawImage)
	AfterStep(ctx context.Context, stepName string, img *RawImage, d time.Duration, err error)
}
