// Package tools exposes decoder operations as named tools.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/wgrib/pkg/tools/toolbox]: Tool type and ToolBox for registering, listing, and calling tools
//   - [github.com/germanamz/wgrib/pkg/tools/mcpserver]: MCP server using the official MCP Go SDK for exposing a ToolBox over stdio
package tools
