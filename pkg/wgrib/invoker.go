package wgrib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/germanamz/wgrib/pkg/capture"
	"github.com/germanamz/wgrib/pkg/routine"
)

// Result is the outcome of one decoder run.
type Result struct {
	Selector   routine.Selector
	Argv       []string
	Stdout     string
	Stderr     string
	ExitStatus int
	Duration   time.Duration
	Digest     string // xxhash64 of Stdout, hex encoded.
}

// Invoker runs decoders with their standard streams captured. Calls are
// serialized, since the process has only one pair of standard streams.
type Invoker struct {
	registry *routine.Registry
	events   *EventBus
	log      *slog.Logger

	mu      sync.Mutex
	capOpts []capture.Option
	timeout time.Duration
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger. It should not write to standard output, which
// the invoker captures.
func WithLogger(l *slog.Logger) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.log = l
		}
	}
}

// WithRegistry uses reg instead of a fresh registry. Routines from the
// configuration are added to it.
func WithRegistry(reg *routine.Registry) Option {
	return func(inv *Invoker) {
		if reg != nil {
			inv.registry = reg
		}
	}
}

// New creates an Invoker from cfg. Configured routines whose decoder is not
// available are skipped with a warning; asking for them later fails with
// routine.ErrUnavailable.
func New(cfg Config, opts ...Option) (*Invoker, error) {
	inv := &Invoker{
		registry: routine.NewRegistry(),
		events:   NewEventBus(),
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(inv)
	}

	if err := inv.apply(cfg, false); err != nil {
		return nil, err
	}

	return inv, nil
}

// Reload applies a new configuration. The routine table is replaced as a
// whole; a run in progress finishes with the previous settings.
func (inv *Invoker) Reload(cfg Config) error {
	return inv.apply(cfg, true)
}

func (inv *Invoker) apply(cfg Config, replace bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	capOpts, err := cfg.CaptureOptions()
	if err != nil {
		return err
	}
	timeout, err := cfg.RunTimeout()
	if err != nil {
		return err
	}
	specs, err := cfg.Specs()
	if err != nil {
		return err
	}

	built := make(map[routine.Selector]routine.Routine, len(specs))
	for _, spec := range specs {
		rt, err := routine.Build(spec)
		if errors.Is(err, routine.ErrUnavailable) {
			inv.log.Warn("decoder unavailable", "selector", spec.Selector, "kind", spec.Kind, "error", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("wgrib: %w", err)
		}
		built[spec.Selector] = rt
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if replace {
		inv.registry.Replace(built)
	} else {
		for sel, rt := range built {
			inv.registry.Register(sel, rt)
		}
	}
	inv.capOpts = append(capOpts, capture.WithLogger(inv.log))
	inv.timeout = timeout

	return nil
}

// Registry returns the invoker's routine table.
func (inv *Invoker) Registry() *routine.Registry { return inv.registry }

// Events returns the invoker's event bus. Runs are reported there rather
// than logged; see LogEvents.
func (inv *Invoker) Events() *EventBus { return inv.events }

// Selectors returns the decoder variants available to Run.
func (inv *Invoker) Selectors() []routine.Selector { return inv.registry.Selectors() }

// RunLine splits a command line the way the decoders' own shells would and
// runs it.
func (inv *Invoker) RunLine(ctx context.Context, selector, line string) (Result, error) {
	return inv.Run(ctx, selector, routine.SplitCommandLine(line))
}

// Run invokes the decoder named by selector with argv and returns what it
// wrote to standard output and standard error. A non-zero exit status is
// reported in the Result, not as an error. Captured output is returned even
// when an error is.
func (inv *Invoker) Run(ctx context.Context, selector string, argv []string) (Result, error) {
	sel, err := routine.ParseSelector(selector)
	if err != nil {
		res := Result{Argv: argv, ExitStatus: -1}
		return res, inv.fail(res, fmt.Errorf("wgrib: run: %w", err))
	}

	res := Result{Selector: sel, Argv: slices.Clone(argv), ExitStatus: -1}
	switch {
	case len(res.Argv) == 0:
		res.Argv = []string{sel.Program()}
	case res.Argv[0] == "":
		res.Argv[0] = sel.Program()
	}

	rt, err := inv.registry.Lookup(sel)
	if err != nil {
		return res, inv.fail(res, fmt.Errorf("wgrib: run: %w", err))
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	opts := slices.Clone(inv.capOpts)
	if f, ok := rt.(routine.Flusher); ok {
		opts = append(opts, capture.WithFlush(f.Flush))
	}

	inv.events.Publish(Event{Kind: EventRunStart, Selector: sel, Argv: res.Argv, Timestamp: time.Now()})

	start := time.Now()
	status, out, err := invoke(ctx, rt, res.Argv, opts)
	res.Duration = time.Since(start)
	res.Stdout = out.Stdout
	res.Stderr = out.Stderr
	res.ExitStatus = status
	res.Digest = digest(out.Stdout)

	if err != nil {
		if capture.IsFatal(err) {
			inv.log.Error("standard streams could not be restored", "selector", sel, "error", err)
		}
		return res, inv.fail(res, fmt.Errorf("wgrib: run %s: %w", sel, err))
	}

	inv.events.Publish(Event{Kind: EventRunEnd, Selector: sel, Argv: res.Argv, Timestamp: time.Now(), Data: res})

	return res, nil
}

type outcome struct {
	status int
	err    error
}

// invoke runs rt on its own goroutine between a stdout and a stderr capture.
// When ctx ends first both captures are aborted and the routine is left to
// finish on its own.
func invoke(ctx context.Context, rt routine.Routine, argv []string, opts []capture.Option) (int, capture.Output, error) {
	pair, err := capture.BeginPair(ctx, opts...)
	if err != nil {
		return -1, capture.Output{}, err
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{status: -1, err: fmt.Errorf("routine panicked: %v", p)}
			}
		}()

		status, err := rt.Run(ctx, argv)
		done <- outcome{status: status, err: err}
	}()

	select {
	case o := <-done:
		out, capErr := pair.End()
		return o.status, out, errors.Join(o.err, capErr)
	case <-ctx.Done():
		out, capErr := pair.Abort()
		return -1, out, errors.Join(fmt.Errorf("%w: %w", capture.ErrTimeout, ctx.Err()), capErr)
	}
}

func (inv *Invoker) fail(res Result, err error) error {
	inv.events.Publish(Event{Kind: EventRunError, Selector: res.Selector, Argv: res.Argv, Timestamp: time.Now(), Data: err})

	return err
}

func digest(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}
