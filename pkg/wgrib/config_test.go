package wgrib

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/germanamz/wgrib/pkg/routine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("WGRIB2_BIN", "/opt/grib/bin/wgrib2")

	data := []byte(`
routines:
  - selector: wgrib
    kind: exec
  - selector: secondary
    kind: exec
    path: ${WGRIB2_BIN}
    args: ["-v"]
    env: ["OMP_NUM_THREADS=1"]
capture:
  mode: background
  sentinel: "#"
  drain_timeout: 2s
timeout: 30s
log_level: debug
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Routines, 2)
	assert.Equal(t, "/opt/grib/bin/wgrib2", cfg.Routines[1].Path)
	assert.Equal(t, []string{"-v"}, cfg.Routines[1].Args)

	specs, err := cfg.Specs()
	require.NoError(t, err)
	assert.Equal(t, routine.Primary, specs[0].Selector)
	assert.Equal(t, routine.Secondary, specs[1].Selector)
	assert.Equal(t, []string{"OMP_NUM_THREADS=1"}, specs[1].Env)

	opts, err := cfg.CaptureOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	timeout, err := cfg.RunTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("routines: [unterminated"))
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wgrib.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capture:\n  close_signal: true\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Capture.CloseSignal)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	specs, err := cfg.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, routine.Primary, specs[0].Selector)
	assert.Equal(t, routine.Secondary, specs[1].Selector)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{
			name: "unknown selector",
			cfg:  Config{Routines: []RoutineConfig{{Selector: "wgrib3"}}},
			msg:  "unknown selector",
		},
		{
			name: "duplicate selector",
			cfg:  Config{Routines: []RoutineConfig{{Selector: "wgrib"}, {Selector: "primary"}}},
			msg:  "duplicate routine",
		},
		{
			name: "unknown kind",
			cfg:  Config{Routines: []RoutineConfig{{Selector: "wgrib", Kind: "remote"}}},
			msg:  "unknown kind",
		},
		{
			name: "unknown mode",
			cfg:  Config{Capture: CaptureConfig{Mode: "sideways"}},
			msg:  "unknown mode",
		},
		{
			name: "long sentinel",
			cfg:  Config{Capture: CaptureConfig{Sentinel: "EOF"}},
			msg:  "single byte",
		},
		{
			name: "bad drain timeout",
			cfg:  Config{Capture: CaptureConfig{DrainTimeout: "soon"}},
			msg:  "capture.drain_timeout",
		},
		{
			name: "negative timeout",
			cfg:  Config{Timeout: "-1s"},
			msg:  "negative duration",
		},
		{
			name: "bad log level",
			cfg:  Config{LogLevel: "loud"},
			msg:  "unknown log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
