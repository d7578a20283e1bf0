//go:build unix

package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ReturnsCapturedText(t *testing.T) {
	stream, f := tempStream(t)

	text, err := Do(context.Background(), stream, func() error {
		_, err := f.WriteString("GRIB records: 3\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "GRIB records: 3\n", text)
}

func TestDo_KeepsOutputOnError(t *testing.T) {
	stream, _ := tempStream(t)
	boom := errors.New("boom")

	text, err := Do(context.Background(), stream, func() error {
		nativeWrite(t, stream.FD(), []byte("partial output"))
		return boom
	}, WithMode(Background))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "partial output", text)
}

func TestDo_RestoresOnPanic(t *testing.T) {
	stream, f := tempStream(t)

	assert.PanicsWithValue(t, "native abort", func() {
		_, _ = Do(context.Background(), stream, func() error {
			nativeWrite(t, stream.FD(), []byte("lost"))
			panic("native abort")
		})
	})

	_, err := f.WriteString("after panic")
	require.NoError(t, err)
	assert.Equal(t, "after panic", fileContents(t, f))

	// The owner slot was released, so a new session can start.
	text, err := Do(context.Background(), stream, func() error {
		_, err := f.WriteString("next")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "next", text)
}

func TestBoth_StandardStreams(t *testing.T) {
	out, err := Both(context.Background(), func() error {
		fmt.Fprint(os.Stdout, "GRIB records: 3\n")
		nativeWrite(t, Stderr.FD(), []byte("*** FATAL ERROR: bad record ***\n"))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "GRIB records: 3\n", out.Stdout)
	assert.Equal(t, "*** FATAL ERROR: bad record ***\n", out.Stderr)
}

func TestBoth_EmptyStderr(t *testing.T) {
	out, err := Both(context.Background(), func() error {
		nativeWrite(t, Stdout.FD(), []byte("1:0:d=24010100:TMP:2 m above gnd:anl:\n"))
		return nil
	}, WithMode(Background))
	require.NoError(t, err)

	assert.Equal(t, "1:0:d=24010100:TMP:2 m above gnd:anl:\n", out.Stdout)
	assert.Empty(t, out.Stderr)
}

func TestPair_Abort(t *testing.T) {
	p, err := BeginPair(context.Background(), WithMode(Background))
	require.NoError(t, err)

	nativeWrite(t, Stdout.FD(), []byte("out"))
	nativeWrite(t, Stderr.FD(), []byte("err"))

	out, err := p.Abort()
	require.NoError(t, err)
	assert.Equal(t, Output{Stdout: "out", Stderr: "err"}, out)
	assert.Equal(t, Stopped, p.Out.State())
	assert.Equal(t, Stopped, p.Err.State())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", Synchronous, true},
		{"sync", Synchronous, true},
		{"synchronous", Synchronous, true},
		{"background", Background, true},
		{"threaded", Background, true},
		{"sideways", Synchronous, false},
	}

	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStream_DetachBypassesCapture(t *testing.T) {
	stream, f := tempStream(t)

	detached, err := stream.Detach(context.Background())
	require.NoError(t, err)
	defer func() { _ = detached.Close() }()

	text, err := Do(context.Background(), stream, func() error {
		if _, err := f.WriteString("captured"); err != nil {
			return err
		}
		_, err := detached.WriteString("protocol message")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, "captured", text)
	assert.Equal(t, "protocol message", fileContents(t, f))
}

func TestStream_DetachClosed(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "closed-*")
	require.NoError(t, err)
	stream := NewStream("closed", f)
	require.NoError(t, f.Close())

	_, err = stream.Detach(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedStream)
}
