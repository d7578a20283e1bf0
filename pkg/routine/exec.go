package routine

import (
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"slices"
	"syscall"
)

// Exec runs a decoder binary as a child process. The child inherits the
// current standard output and standard error descriptors, so an active capture
// sees its output.
type Exec struct {
	Path string
	Args []string // Inserted before the caller's arguments.
	Env  []string // Appended to the current environment.
}

func newExec(spec Spec) (Routine, error) {
	path := spec.Path
	if path == "" {
		path = spec.Selector.Program()
	}

	resolved, err := osexec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, spec.Selector, err)
	}

	return &Exec{Path: resolved, Args: slices.Clone(spec.Args), Env: slices.Clone(spec.Env)}, nil
}

// Run executes the binary. argv[0] is passed as the child's program name; a
// non-zero exit is reported as the status, not as an error.
func (e *Exec) Run(ctx context.Context, argv []string) (int, error) {
	var rest []string
	if len(argv) > 1 {
		rest = argv[1:]
	}

	cmd := osexec.CommandContext(ctx, e.Path, append(slices.Clone(e.Args), rest...)...) //nolint:gosec // path comes from configuration
	if len(argv) > 0 && argv[0] != "" {
		cmd.Args[0] = argv[0]
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	err := cmd.Run()

	var exitErr *osexec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case ctx.Err() != nil:
		return -1, fmt.Errorf("routine: exec %s: %w", e.Path, ctx.Err())
	case errors.As(err, &exitErr):
		// A child killed by a signal reports -1; use the shell's 128+n.
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	default:
		return -1, fmt.Errorf("routine: exec %s: %w", e.Path, err)
	}
}
