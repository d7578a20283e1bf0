//go:build unix

package routine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_ExitStatus(t *testing.T) {
	rt, err := Build(Spec{Selector: Primary, Kind: "exec", Path: "sh", Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)

	status, err := rt.Run(context.Background(), []string{"wgrib"})
	require.NoError(t, err)
	assert.Equal(t, 3, status)
}

func TestExec_KilledBySignal(t *testing.T) {
	rt, err := Build(Spec{Selector: Primary, Kind: "exec", Path: "sh", Args: []string{"-c", "kill -TERM $$"}})
	require.NoError(t, err)

	status, err := rt.Run(context.Background(), []string{"wgrib"})
	require.NoError(t, err)
	assert.Equal(t, 128+15, status)
}

func TestExec_PassesArguments(t *testing.T) {
	// With sh -c the first argument after the script becomes $0.
	rt, err := Build(Spec{Selector: Primary, Kind: "exec", Path: "sh", Args: []string{"-c", `test "$0" = sample.grb && test "$#" = 0`}})
	require.NoError(t, err)

	status, err := rt.Run(context.Background(), []string{"wgrib", "sample.grb"})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestExec_Env(t *testing.T) {
	rt, err := Build(Spec{
		Selector: Secondary,
		Kind:     "exec",
		Path:     "sh",
		Args:     []string{"-c", `test "$GRIB_TABLE" = ncep`},
		Env:      []string{"GRIB_TABLE=ncep"},
	})
	require.NoError(t, err)

	status, err := rt.Run(context.Background(), []string{"wgrib2"})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestExec_ContextCancel(t *testing.T) {
	rt, err := Build(Spec{Selector: Primary, Kind: "exec", Path: "sleep"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = rt.Run(ctx, []string{"sleep", "5"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExec_MissingBinary(t *testing.T) {
	_, err := Build(Spec{Selector: Secondary, Kind: "exec", Path: "/nonexistent/wgrib2"})
	require.ErrorIs(t, err, ErrUnavailable)
}
