package wgrib

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/germanamz/wgrib/pkg/capture"
	"github.com/germanamz/wgrib/pkg/routine"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Routines []RoutineConfig `yaml:"routines"`
	Capture  CaptureConfig   `yaml:"capture"`
	Timeout  string          `yaml:"timeout"`   // Per-run bound as a duration string (e.g. "30s"). Empty means none.
	LogLevel string          `yaml:"log_level"` // debug, info, warn or error.
}

// RoutineConfig describes one decoder variant.
type RoutineConfig struct {
	Selector string   `yaml:"selector"` // primary / secondary, or wgrib / wgrib2.
	Kind     string   `yaml:"kind"`     // exec, linked or a kind added with routine.RegisterKind. Empty picks linked when compiled in.
	Path     string   `yaml:"path"`     // Binary for kind exec. Defaults to the program name on $PATH.
	Args     []string `yaml:"args"`
	Env      []string `yaml:"env"`
}

// CaptureConfig controls how decoder output is collected.
type CaptureConfig struct {
	Mode         string `yaml:"mode"`          // synchronous (default) or background.
	Sentinel     string `yaml:"sentinel"`      // Single escape byte. Defaults to "\b".
	CloseSignal  bool   `yaml:"close_signal"`  // End on pipe close instead of a sentinel byte.
	DrainTimeout string `yaml:"drain_timeout"` // Bound on waiting for the terminator. Defaults to 10s.
	Settle       string `yaml:"settle"`        // Extra delay after the background drain starts.
}

// DefaultConfig returns a configuration that looks both decoders up on $PATH
// (or uses them when linked in) and drains in the background.
func DefaultConfig() Config {
	return Config{
		Routines: []RoutineConfig{
			{Selector: string(routine.Primary)},
			{Selector: string(routine.Secondary)},
		},
		Capture:  CaptureConfig{Mode: capture.Background.String()},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML file and returns a Config. Environment variables
// referenced as ${VAR} or $VAR are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return Config{}, fmt.Errorf("wgrib: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("wgrib: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	seen := make(map[routine.Selector]struct{}, len(c.Routines))
	for _, rc := range c.Routines {
		sel, err := routine.ParseSelector(rc.Selector)
		if err != nil {
			return fmt.Errorf("wgrib: config: routine: %w", err)
		}
		if _, dup := seen[sel]; dup {
			return fmt.Errorf("wgrib: config: duplicate routine for %s", sel)
		}
		seen[sel] = struct{}{}

		if !routine.KnownKind(rc.Kind) {
			return fmt.Errorf("wgrib: config: routine %s: unknown kind %q", sel, rc.Kind)
		}
	}

	if _, ok := capture.ParseMode(c.Capture.Mode); !ok {
		return fmt.Errorf("wgrib: config: capture: unknown mode %q", c.Capture.Mode)
	}
	if len(c.Capture.Sentinel) > 1 {
		return fmt.Errorf("wgrib: config: capture: sentinel must be a single byte, got %q", c.Capture.Sentinel)
	}
	if _, err := parseDuration("capture.drain_timeout", c.Capture.DrainTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("capture.settle", c.Capture.Settle); err != nil {
		return err
	}
	if _, err := parseDuration("timeout", c.Timeout); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Specs converts the routine entries to routine specs.
func (c Config) Specs() ([]routine.Spec, error) {
	specs := make([]routine.Spec, 0, len(c.Routines))
	for _, rc := range c.Routines {
		sel, err := routine.ParseSelector(rc.Selector)
		if err != nil {
			return nil, fmt.Errorf("wgrib: config: routine: %w", err)
		}
		specs = append(specs, routine.Spec{
			Selector: sel,
			Kind:     rc.Kind,
			Path:     rc.Path,
			Args:     rc.Args,
			Env:      rc.Env,
		})
	}

	return specs, nil
}

// CaptureOptions converts the capture section to capture options.
func (c Config) CaptureOptions() ([]capture.Option, error) {
	mode, ok := capture.ParseMode(c.Capture.Mode)
	if !ok {
		return nil, fmt.Errorf("wgrib: config: capture: unknown mode %q", c.Capture.Mode)
	}

	opts := []capture.Option{capture.WithMode(mode)}

	if len(c.Capture.Sentinel) == 1 {
		opts = append(opts, capture.WithSentinel(c.Capture.Sentinel[0]))
	}
	if c.Capture.CloseSignal {
		opts = append(opts, capture.WithCloseSignal())
	}
	if c.Capture.DrainTimeout != "" {
		d, err := parseDuration("capture.drain_timeout", c.Capture.DrainTimeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, capture.WithDrainTimeout(d))
	}
	if c.Capture.Settle != "" {
		d, err := parseDuration("capture.settle", c.Capture.Settle)
		if err != nil {
			return nil, err
		}
		opts = append(opts, capture.WithSettle(d))
	}

	return opts, nil
}

// RunTimeout returns the per-run bound, zero when unset.
func (c Config) RunTimeout() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout)
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("wgrib: config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("wgrib: config: %s: negative duration %s", key, s)
	}

	return d, nil
}

// ParseLevel maps a log level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("wgrib: config: unknown log level %q", s)
	}
}
