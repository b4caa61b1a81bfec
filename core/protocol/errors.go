package protocol

import (
	"errors"
	"fmt"
)

// ErrFormat matches every protocol format violation.
var ErrFormat = errors.New("protocol: format violation")

var (
	ErrShortHeader        = errors.New("protocol: buffer shorter than header")
	ErrFrameLength        = errors.New("protocol: invalid frame length")
	ErrFrameTooLarge      = errors.New("protocol: frame length exceeds limit")
	ErrDataOffset         = errors.New("protocol: invalid data offset")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrFrameHeader        = errors.New("protocol: truncated or inconsistent frame header")
	ErrNoFrame            = errors.New("protocol: no frame left")
	ErrStructMismatch     = errors.New("protocol: unbalanced struct frames")
	ErrNotFinalized       = errors.New("protocol: message frame length not updated")
	ErrFrameSize          = errors.New("protocol: unexpected frame payload size")
	ErrUnexpectedNull     = errors.New("protocol: unexpected null frame")
)

// FormatError reports a corrupt stream or a codec bug.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrFormat)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatError(op string, err error) error {
	return &FormatError{Op: op, Err: err}
}

func formatErrorf(op string, sentinel error, format string, args ...any) error {
	return &FormatError{Op: op, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

// IsFormatError reports whether err is a protocol format violation.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

// Errorf builds a FormatError for codecs layered on top of this package.
func Errorf(op string, sentinel error, format string, args ...any) error {
	return formatErrorf(op, sentinel, format, args...)
}
