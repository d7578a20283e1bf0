package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/wgrib/pkg/wgrib"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		selector string
		line     string
		expect   string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] [-- decoder args...]",
		Short: "Run a decoder and print its captured output",
		Long: `Run invokes the selected decoder with the given arguments, then writes
what it printed to standard output and standard error. The exit status is the
decoder's. With --expect the captured standard output is compared with a file
and a unified diff is printed on mismatch.`,
		Example: `  wgrib run -- sample.grb -s
  wgrib run --selector wgrib2 --line 'wgrib2 in.grb2 -match ":TMP:"'
  wgrib run --expect inventory.txt -- sample.grb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if line != "" && len(args) > 0 {
				return errors.New("run: pass either --line or decoder args, not both")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			inv, log, err := a.newInvoker(ctx)
			if err != nil {
				return err
			}

			sub := inv.Events().Subscribe(4)
			logged := make(chan struct{})
			go func() {
				defer close(logged)
				wgrib.LogEvents(ctx, sub, log)
			}()

			err = a.run(ctx, inv, selector, line, args, expect)
			inv.Events().Unsubscribe(sub)
			<-logged

			return err
		},
	}

	cmd.Flags().StringVarP(&selector, "selector", "s", "primary", "decoder: primary (wgrib) or secondary (wgrib2)")
	cmd.Flags().StringVar(&line, "line", "", "full command line, program name first")
	cmd.Flags().StringVar(&expect, "expect", "", "file with the expected standard output")

	return cmd
}

func (a *app) run(ctx context.Context, inv *wgrib.Invoker, selector, line string, args []string, expect string) error {
	var (
		res wgrib.Result
		err error
	)
	if line != "" {
		res, err = inv.RunLine(ctx, selector, line)
	} else {
		res, err = inv.Run(ctx, selector, append([]string{""}, args...))
	}

	_, _ = io.WriteString(a.stdout, res.Stdout)
	_, _ = io.WriteString(a.stderr, res.Stderr)

	if err != nil {
		return err
	}

	if expect != "" {
		want, err := os.ReadFile(expect) //nolint:gosec // path is a user-provided flag
		if err != nil {
			return fmt.Errorf("run: expect: %w", err)
		}
		if diff, err := unifiedDiff(expect, string(want), res.Stdout); err != nil {
			return fmt.Errorf("run: expect: %w", err)
		} else if diff != "" {
			_, _ = io.WriteString(a.stderr, diff)
			return &exitError{code: 1, err: fmt.Errorf("output differs from %s", expect)}
		}
	}

	if res.ExitStatus != 0 {
		return &exitError{code: exitCode(res.ExitStatus)}
	}

	return nil
}

// exitCode maps a decoder status onto a process exit status. Statuses the
// process cannot report, such as -1 for a routine that did not exit normally,
// become 1.
func exitCode(status int) int {
	if status < 0 || status > 255 {
		return 1
	}
	return status
}

// unifiedDiff returns a unified diff from want to got, empty when equal.
func unifiedDiff(name, want, got string) (string, error) {
	if want == got {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: name,
		ToFile:   "captured",
		Context:  3,
	}

	return difflib.GetUnifiedDiffString(diff)
}
