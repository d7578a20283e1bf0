package routine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when the requested decoder variant is not
// available in this build or configuration.
var ErrUnavailable = errors.New("routine: unavailable")

// Routine runs a native decoder. argv[0] is conventionally the program name.
// Output is written to the process's standard streams, not returned.
type Routine interface {
	Run(ctx context.Context, argv []string) (int, error)
}

// Flusher is implemented by routines that buffer output outside the Go
// runtime, such as libc stdio buffers of a linked decoder.
type Flusher interface {
	Flush() error
}

// Func adapts a plain function to a Routine.
type Func func(ctx context.Context, argv []string) (int, error)

// Run calls f.
func (f Func) Run(ctx context.Context, argv []string) (int, error) {
	return f(ctx, argv)
}

// Selector names a decoder variant.
type Selector string

const (
	// Primary is the GRIB1 decoder, wgrib.
	Primary Selector = "primary"
	// Secondary is the GRIB2 decoder, wgrib2.
	Secondary Selector = "secondary"
)

// ParseSelector accepts the selector names and the program names and
// generation numbers used by the decoders themselves. An empty string selects
// the primary decoder.
func ParseSelector(s string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary", "wgrib", "1":
		return Primary, nil
	case "secondary", "wgrib2", "2":
		return Secondary, nil
	default:
		return "", fmt.Errorf("%w: unknown selector %q", ErrUnavailable, s)
	}
}

// Program returns the decoder's conventional program name.
func (s Selector) Program() string {
	switch s {
	case Primary:
		return "wgrib"
	case Secondary:
		return "wgrib2"
	default:
		return string(s)
	}
}
