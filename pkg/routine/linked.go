package routine

import (
	"context"
	"fmt"
	"sync"
)

// LinkedRoutine is a decoder compiled into the binary. Its main function runs
// on the calling goroutine and cannot be interrupted.
type LinkedRoutine struct {
	sel   Selector
	main  func(argv []string) int
	flush func() error
}

var (
	linkedMu sync.RWMutex
	linked   = map[Selector]*LinkedRoutine{}
)

func registerLinked(sel Selector, main func(argv []string) int, flush func() error) {
	linkedMu.Lock()
	defer linkedMu.Unlock()

	linked[sel] = &LinkedRoutine{sel: sel, main: main, flush: flush}
}

// Linked returns the decoder compiled in for sel, if any.
func Linked(sel Selector) (*LinkedRoutine, bool) {
	linkedMu.RLock()
	defer linkedMu.RUnlock()

	l, ok := linked[sel]
	return l, ok
}

func newLinked(spec Spec) (Routine, error) {
	l, ok := Linked(spec.Selector)
	if !ok {
		return nil, fmt.Errorf("%w: %s was not linked into this build", ErrUnavailable, spec.Selector)
	}

	return l, nil
}

// Run calls the decoder's main with argv, substituting the program name when
// argv is empty.
func (l *LinkedRoutine) Run(ctx context.Context, argv []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if len(argv) == 0 {
		argv = []string{l.sel.Program()}
	}

	return l.main(argv), nil
}

// Flush flushes the decoder's stdio buffers.
func (l *LinkedRoutine) Flush() error {
	if l.flush == nil {
		return nil
	}

	return l.flush()
}
