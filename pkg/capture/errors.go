package capture

import "errors"

var (
	// ErrUnsupportedStream is returned when the stream has no live descriptor
	// backing its stream object, for example when os.Stdout was reassigned to
	// some other file.
	ErrUnsupportedStream = errors.New("capture: unsupported stream")

	// ErrResourceExhausted is returned when the pipe or the descriptor
	// duplicate could not be created. No redirection is left in place.
	ErrResourceExhausted = errors.New("capture: descriptor resources exhausted")

	// ErrCapture is returned when the drain could not observe the terminator,
	// either because the pipe closed first or because the drain bound elapsed.
	ErrCapture = errors.New("capture: drain failed")

	// ErrRestore is returned when the original descriptor could not be put
	// back. The process's standard streams can no longer be trusted.
	ErrRestore = errors.New("capture: restore failed")

	// ErrTimeout is returned when the wrapped call did not complete in time
	// and the session had to be aborted.
	ErrTimeout = errors.New("capture: timed out")
)

// IsFatal reports whether err leaves the process's stream table inconsistent.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRestore)
}
