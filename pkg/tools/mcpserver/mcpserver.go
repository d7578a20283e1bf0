// Package mcpserver serves a toolbox over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/germanamz/wgrib/pkg/capture"
	"github.com/germanamz/wgrib/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer serves tools over MCP using the official MCP Go SDK. Calls are
// dispatched through a ToolBox.
type MCPServer struct {
	server *mcp.Server
	tools  *toolbox.ToolBox
	log    *slog.Logger
	calls  atomic.Uint64
}

// New creates an MCPServer with the given name and version.
func New(name, version string, log *slog.Logger) *MCPServer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	return &MCPServer{server: server, tools: toolbox.New(), log: log}
}

// Register adds tools to the server. Register before serving.
func (s *MCPServer) Register(tools ...toolbox.Tool) {
	s.tools.Register(tools...)
	for _, t := range tools {
		s.server.AddTool(toSDKTool(t), s.toSDKHandler(t.Name))
	}
}

// RegisterToolBox adds every tool in tb to the server.
func (s *MCPServer) RegisterToolBox(tb *toolbox.ToolBox) {
	s.tools.Merge(tb)
	for _, t := range tb.Tools() {
		s.server.AddTool(toSDKTool(t), s.toSDKHandler(t.Name))
	}
}

// Serve reads requests from in and writes responses to out until ctx is
// cancelled or the transport closes.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// ServeStdio serves over standard input and output. Responses are written to
// a detached duplicate of standard output, so tool calls that capture the
// process's standard output do not swallow protocol messages.
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	out, err := capture.Stdout.Detach(ctx)
	if err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	defer func() { _ = out.Close() }()

	return s.Serve(ctx, os.Stdin, out)
}

// run is the transport-agnostic entry point; tests call it with in-memory
// transports.
func (s *MCPServer) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func toSDKTool(t toolbox.Tool) *mcp.Tool {
	schema := t.InputSchema
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}
}

// toSDKHandler routes an SDK tool call through the toolbox. Handler errors
// are returned as tool results with IsError set, not as protocol errors.
func (s *MCPServer) toSDKHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args string
		if req.Params.Arguments != nil {
			args = string(req.Params.Arguments)
		}

		start := time.Now()
		res := s.tools.Call(ctx, toolbox.Call{
			ID:        strconv.FormatUint(s.calls.Add(1), 10),
			Name:      name,
			Arguments: args,
		})

		if res.IsError {
			s.log.Warn("tool call failed", "tool", name, "call_id", res.CallID, "duration", time.Since(start), "error", res.Content)
		} else {
			s.log.Debug("tool call", "tool", name, "call_id", res.CallID, "duration", time.Since(start))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Content}},
			IsError: res.IsError,
		}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
