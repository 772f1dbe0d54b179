package convert

import (
	"errors"
	"fmt"
)

// Static errors for conversion requests.
var (
	// ErrInvalidRequest is returned when a request fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoVideo is returned by Extract when nothing follows the still image.
	ErrNoVideo = errors.New("no embedded video after end-of-image marker")
)

// TranscodeError reports a failed or empty transcoder run. It is never
// retried; the enclosing operation stops and writes nothing.
type TranscodeError struct {
	Input  string
	Output string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s -> %s: %v", e.Input, e.Output, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// IOError reports an unreadable input or unwritable output path.
type IOError struct {
	// Op is the failed operation, e.g. "read" or "write".
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
