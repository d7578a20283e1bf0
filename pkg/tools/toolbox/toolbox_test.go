package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, input json.RawMessage) (string, error) {
	return string(input), nil
}

func errorHandler(_ context.Context, _ json.RawMessage) (string, error) {
	return "", errors.New("decoder exited")
}

func newEchoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Echoes input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler:     echoHandler,
	}
}

func TestNew(t *testing.T) {
	tb := New()
	assert.NotNil(t, tb)
	assert.Empty(t, tb.Tools())
}

func TestRegisterAndGet(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("wgrib_run"))

	got, ok := tb.Get("wgrib_run")
	assert.True(t, ok)
	assert.Equal(t, "wgrib_run", got.Name)

	_, ok = tb.Get("missing")
	assert.False(t, ok)
}

func TestRegisterReplace(t *testing.T) {
	tb := New()
	tb.Register(Tool{Name: "tool", Description: "original", Handler: echoHandler})
	tb.Register(Tool{Name: "tool", Description: "replaced", Handler: echoHandler})

	got, ok := tb.Get("tool")
	require.True(t, ok)
	assert.Equal(t, "replaced", got.Description)
	assert.Len(t, tb.Tools(), 1)
}

func TestToolsSorted(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("c"), newEchoTool("a"), newEchoTool("b"))

	var names []string
	for _, tool := range tb.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestMerge(t *testing.T) {
	a := New()
	a.Register(newEchoTool("a"))
	b := New()
	b.Register(newEchoTool("b"))

	a.Merge(b)
	assert.Len(t, a.Tools(), 2)
	assert.Len(t, b.Tools(), 1)
}

func TestCall(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("echo"), Tool{Name: "fail", Handler: errorHandler})

	res := tb.Call(context.Background(), Call{ID: "c1", Name: "echo", Arguments: `{"args":["sample.grb"]}`})
	assert.False(t, res.IsError)
	assert.Equal(t, "c1", res.CallID)
	assert.JSONEq(t, `{"args":["sample.grb"]}`, res.Content)

	res = tb.Call(context.Background(), Call{ID: "c2", Name: "echo"})
	assert.Equal(t, "{}", res.Content)

	res = tb.Call(context.Background(), Call{ID: "c3", Name: "fail"})
	assert.True(t, res.IsError)
	assert.Equal(t, "decoder exited", res.Content)

	res = tb.Call(context.Background(), Call{ID: "c4", Name: "missing"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "tool not found: missing")
}
