package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Call is a request to run a tool.
type Call struct {
	ID        string
	Name      string
	Arguments string
}

// Result is the outcome of a Call. Handler errors are reported with IsError
// set and the error text as Content.
type Result struct {
	CallID  string
	Content string
	IsError bool
}

// ToolBox holds a set of tools by name.
type ToolBox struct {
	tools map[string]Tool
}

// New creates an empty ToolBox.
func New() *ToolBox {
	return &ToolBox{tools: make(map[string]Tool)}
}

// Register adds tools, replacing any with the same name.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Merge registers all tools from other, replacing any with the same name.
func (tb *ToolBox) Merge(other *ToolBox) {
	for _, t := range other.tools {
		tb.tools[t.Name] = t
	}
}

// Tools returns all registered tools sorted by name.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.tools))
	for _, t := range tb.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result
}

// Call runs the named tool. An unknown tool or a handler error yields a
// Result with IsError set.
func (tb *ToolBox) Call(ctx context.Context, c Call) Result {
	t, ok := tb.Get(c.Name)
	if !ok {
		return Result{CallID: c.ID, Content: fmt.Sprintf("tool not found: %s", c.Name), IsError: true}
	}

	args := c.Arguments
	if args == "" {
		args = "{}"
	}

	out, err := t.Handler(ctx, json.RawMessage(args))
	if err != nil {
		return Result{CallID: c.ID, Content: err.Error(), IsError: true}
	}

	return Result{CallID: c.ID, Content: out}
}
