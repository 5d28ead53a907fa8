// Package mcpserver exposes toolbox tools as an MCP server, over stdio, SSE
// or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer serves a set of tools over the MCP protocol.
type MCPServer struct {
	server *mcp.Server
	tools  []string
}

// New creates an MCPServer announcing the given implementation name and version.
func New(name, version string) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	return &MCPServer{server: server}
}

// Register adds tools to the server. Tools without a handler are skipped.
func (s *MCPServer) Register(tools ...toolbox.Tool) {
	for _, t := range tools {
		if t.Handler == nil {
			continue
		}
		s.server.AddTool(toSDKTool(t), toSDKHandler(t.Handler))
		s.tools = append(s.tools, t.Name)
	}
}

// ToolNames returns the names of the registered tools in registration order.
func (s *MCPServer) ToolNames() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

// Serve serves one client over the given streams until ctx is cancelled or
// the client disconnects.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// SSEPath is where Handler serves the SSE transport.
const SSEPath = "/sse"

// Handler returns an http.Handler serving the SSE transport at SSEPath and
// streamable HTTP on every other path. Every client session is served by
// the same tool set.
func (s *MCPServer) Handler() http.Handler {
	getServer := func(*http.Request) *mcp.Server { return s.server }

	mux := http.NewServeMux()
	mux.Handle(SSEPath, mcp.NewSSEHandler(getServer, nil))
	mux.Handle("/", mcp.NewStreamableHTTPHandler(getServer, nil))
	return mux
}

// run serves a single transport; tests call it with in-memory transports.
func (s *MCPServer) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func toSDKTool(t toolbox.Tool) *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Schema(),
	}
}

// toSDKHandler adapts a toolbox.Handler. Handler errors become tool-level
// error results rather than protocol errors.
func toSDKHandler(h toolbox.Handler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = json.RawMessage("{}")
		}
		result, err := h(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
