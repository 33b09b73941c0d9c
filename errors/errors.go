package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures the way callers are expected to react to them.
type Kind string

const (
	KindInvalidParameter   Kind = "invalid_parameter"
	KindNoSuchFile         Kind = "no_such_file"
	KindOutOfMemory        Kind = "out_of_memory"
	KindNotSupportedFormat Kind = "not_supported_format"
	KindInvalidOperation   Kind = "invalid_operation"
)

// Sentinels, one per Kind.  An *ImageError matches the sentinel of its kind
// under errors.Is.
var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNoSuchFile         = errors.New("no such file")
	ErrOutOfMemory        = errors.New("out of memory")
	ErrNotSupportedFormat = errors.New("not supported format")
	ErrInvalidOperation   = errors.New("invalid operation")
)

var sentinels = map[Kind]error{
	KindInvalidParameter:   ErrInvalidParameter,
	KindNoSuchFile:         ErrNoSuchFile,
	KindOutOfMemory:        ErrOutOfMemory,
	KindNotSupportedFormat: ErrNotSupportedFormat,
	KindInvalidOperation:   ErrInvalidOperation,
}

// ImageError is the structured error type used throughout the module.
type ImageError struct {
	Kind Kind
	Op   string // operation name
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *ImageError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// New creates an ImageError.  A nil err is replaced by the kind's sentinel.
func New(kind Kind, op string, err error) *ImageError {
	if err == nil {
		err = sentinels[kind]
	}
	return &ImageError{Kind: kind, Op: op, Err: err}
}

// Newf creates an ImageError with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *ImageError {
	return &ImageError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap wraps an existing error with context.  Errors that already carry a
// kind keep it so the innermost classification wins.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *ImageError
	if errors.As(err, &ie) {
		return &ImageError{Kind: ie.Kind, Op: op, Err: err}
	}
	return New(kind, op, err)
}

// KindOf returns the kind of err, or "" when err is not an ImageError.
func KindOf(err error) Kind {
	var ie *ImageError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
