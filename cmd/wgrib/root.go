package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/germanamz/wgrib/pkg/capture"
	"github.com/germanamz/wgrib/pkg/wgrib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// exitFatal is the status used when the standard streams could not be
// restored after a capture.
const exitFatal = 3

// exitError carries a process exit status through cobra. A nil err means the
// status is reported without a message.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// app holds state shared by the subcommands.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer

	logFile *os.File // Detached standard error, opened on first use.
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "error:", ee.err)
		}
		return ee.code
	}

	fmt.Fprintln(stderr, "error:", err)
	if capture.IsFatal(err) {
		return exitFatal
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "wgrib",
		Short: "Run GRIB decoders with captured output",
		Long: `wgrib runs the wgrib (GRIB1) and wgrib2 (GRIB2) decoders, either linked
into this binary or as external programs, and collects what they write to
standard output and standard error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringP("config", "c", "", "config file (default: built-in defaults)")
	root.PersistentFlags().String("env", ".env", "path to .env file (ignored if missing)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("mode", "", "capture mode: synchronous or background")
	root.PersistentFlags().String("timeout", "", "per-run timeout, e.g. 30s")

	root.AddCommand(newRunCmd(a), newRoutinesCmd(a), newServeCmd(a))

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env")
	if err != nil {
		return err
	}
	if err := loadDotEnv(envFile); err != nil {
		return err
	}

	a.v.SetEnvPrefix("WGRIB")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	return a.v.BindPFlags(cmd.Flags())
}

// loadConfig resolves the configuration: the config file (or the defaults)
// overridden by WGRIB_* environment variables and then by flags.
func (a *app) loadConfig() (wgrib.Config, error) {
	cfg := wgrib.DefaultConfig()
	if path := a.v.GetString("config"); path != "" {
		loaded, err := wgrib.LoadConfig(path)
		if err != nil {
			return wgrib.Config{}, err
		}
		cfg = loaded
	}

	if a.v.IsSet("mode") {
		cfg.Capture.Mode = a.v.GetString("mode")
	}
	if a.v.IsSet("timeout") {
		cfg.Timeout = a.v.GetString("timeout")
	}
	if a.v.IsSet("log-level") {
		cfg.LogLevel = a.v.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return wgrib.Config{}, err
	}

	return cfg, nil
}

// newInvoker loads the configuration and builds an invoker and its logger.
func (a *app) newInvoker(ctx context.Context) (*wgrib.Invoker, *slog.Logger, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := a.newLogger(ctx, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	inv, err := wgrib.New(cfg, wgrib.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	return inv, log, nil
}

func (a *app) newLogger(ctx context.Context, level string) (*slog.Logger, error) {
	lvl, err := wgrib.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}

	w, err := a.logWriter(ctx)
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// logWriter returns the destination for log records. The process's standard
// error is replaced by a detached duplicate, so records written while a
// decoder runs reach the terminal instead of the decoder's captured output.
func (a *app) logWriter(ctx context.Context) (io.Writer, error) {
	if f, ok := a.stderr.(*os.File); !ok || f != os.Stderr {
		return a.stderr, nil
	}

	if a.logFile == nil {
		f, err := capture.Stderr.Detach(ctx)
		if err != nil {
			return nil, err
		}
		a.logFile = f
	}

	return a.logFile, nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
