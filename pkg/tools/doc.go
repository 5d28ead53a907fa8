// Package tools groups the tool descriptor and the MCP plumbing.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/mcpchat/pkg/tools/toolbox] — Tool descriptor and Handler type
//   - [github.com/germanamz/mcpchat/pkg/tools/mcpclient] — one client session with a remote MCP server (SSE, streamable HTTP, stdio)
//   - [github.com/germanamz/mcpchat/pkg/tools/mcpserver] — serves toolbox tools over MCP (stdio, SSE, streamable HTTP)
//
// mcpclient and mcpserver are thin wrappers around the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk) and depend only on toolbox.
package tools
