package capture

import (
	"log/slog"
	"time"
)

// Mode selects how the pipe is drained.
type Mode int

const (
	// Synchronous drains the pipe inline during End. Only safe when the
	// captured output stays below the pipe's kernel buffer capacity.
	Synchronous Mode = iota
	// Background drains the pipe on a dedicated goroutine for the whole
	// session, so writers never block on a full pipe.
	Background
)

func (m Mode) String() string {
	switch m {
	case Synchronous:
		return "synchronous"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "sync", "synchronous":
		return Synchronous, true
	case "background", "threaded", "async":
		return Background, true
	default:
		return Synchronous, false
	}
}

const (
	// DefaultSentinel is the escape byte that ends a session's drain.
	DefaultSentinel byte = '\b'
	// DefaultDrainTimeout bounds how long End waits for the terminator.
	DefaultDrainTimeout = 10 * time.Second

	// abortGrace is how long Abort keeps draining after the descriptor is
	// restored.
	abortGrace = 250 * time.Millisecond

	// releasePoll is the read deadline used while waiting for a queued
	// sentinel write to land.
	releasePoll = 10 * time.Millisecond
)

// Option configures a Session.
type Option func(*options)

type options struct {
	mode         Mode
	sentinel     byte
	closeSignal  bool
	drainTimeout time.Duration
	settle       time.Duration
	flush        func() error
	log          *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		mode:         Synchronous,
		sentinel:     DefaultSentinel,
		drainTimeout: DefaultDrainTimeout,
		log:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithMode sets the drain mode. The default is Synchronous.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithSentinel sets the escape byte written by End to mark the end of the
// captured data. Output containing this byte is truncated at its first
// occurrence.
func WithSentinel(b byte) Option {
	return func(o *options) { o.sentinel = b }
}

// WithCloseSignal ends the drain on end-of-file instead of a sentinel byte:
// End restores the descriptor first, which drops the last reference to the
// pipe's write end. Child processes still holding the descriptor delay the
// end-of-file until they exit or the drain bound elapses.
func WithCloseSignal() Option {
	return func(o *options) { o.closeSignal = true }
}

// WithDrainTimeout bounds how long End waits for the terminator. Zero waits
// forever.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) { o.drainTimeout = d }
}

// WithSettle adds a delay after the background drain goroutine has started.
func WithSettle(d time.Duration) Option {
	return func(o *options) { o.settle = d }
}

// WithFlush registers a hook run by End before the terminator, typically a
// flush of a native library's own stdio buffers.
func WithFlush(fn func() error) Option {
	return func(o *options) { o.flush = fn }
}

// WithLogger sets the logger. Records are only emitted while the stream is
// not redirected.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
