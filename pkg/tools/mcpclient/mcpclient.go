// Package mcpclient wraps one MCP client session from the official MCP Go
// SDK: connect and handshake, list the tool catalog, call tools, close.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrClosed is returned by every operation on a closed client.
var ErrClosed = errors.New("mcpclient: session closed")

// ToolError is returned by CallTool when the server reports that the tool
// itself failed.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcpclient: tool %q failed: %s", e.Tool, e.Message)
}

// clientInfo is sent during the initialize handshake.
var clientInfo = &mcp.Implementation{
	Name:    "mcpchat",
	Version: "0.1.0",
}

// MCPClient is a live, handshake-completed session with one MCP server.
type MCPClient struct {
	client  *mcp.Client
	session *mcp.ClientSession

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the endpoint over its transport. The SDK performs the
// initialize handshake inside Connect.
func Dial(ctx context.Context, ep Endpoint) (*MCPClient, error) {
	transport, err := ep.transport()
	if err != nil {
		return nil, fmt.Errorf("mcpclient: %w", err)
	}

	return newFromTransport(ctx, transport)
}

// New spawns an MCP server process and connects to it over stdio.
func New(ctx context.Context, command string, args ...string) (*MCPClient, error) {
	return Dial(ctx, Endpoint{Command: command, Args: args, Transport: TransportStdio})
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*MCPClient, error) {
	return Dial(ctx, Endpoint{URL: url, Transport: TransportSSE})
}

// NewStreamable connects to a streamable HTTP MCP server at the given URL.
func NewStreamable(ctx context.Context, url string) (*MCPClient, error) {
	return Dial(ctx, Endpoint{URL: url, Transport: TransportStreamable})
}

// newFromTransport creates an MCPClient over any transport. Tests use it with
// in-memory transports.
func newFromTransport(ctx context.Context, transport mcp.Transport) (*MCPClient, error) {
	client := mcp.NewClient(clientInfo, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &MCPClient{client: client, session: session}, nil
}

// ListTools fetches the server's whole tool catalog, following pagination
// cursors.
func (c *MCPClient) ListTools(ctx context.Context) ([]toolbox.Tool, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var (
		tools  []toolbox.Tool
		cursor string
	)
	for {
		result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("mcpclient: list tools: %w", err)
		}

		for _, sdkTool := range result.Tools {
			t, err := fromSDKTool(sdkTool)
			if err != nil {
				return nil, fmt.Errorf("mcpclient: convert tool %q: %w", sdkTool.Name, err)
			}
			tools = append(tools, t)
		}

		if result.NextCursor == "" || result.NextCursor == cursor {
			return tools, nil
		}
		cursor = result.NextCursor
	}
}

// CallTool calls a named tool with a JSON object of arguments and returns
// the result content flattened to text. A result flagged as an error by the
// server is returned as a *ToolError.
func (c *MCPClient) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}

	args := map[string]any{}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("mcpclient: unmarshal arguments: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool %q: %w", name, err)
	}

	text := extractText(result)

	if result.IsError {
		return "", &ToolError{Tool: name, Message: text}
	}

	return text, nil
}

// Close ends the session. It is idempotent; every later call on the client
// fails with ErrClosed.
func (c *MCPClient) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
	})
	return c.closeErr
}

// fromSDKTool converts an SDK tool into a descriptor.
func fromSDKTool(sdkTool *mcp.Tool) (toolbox.Tool, error) {
	var schema json.RawMessage
	if sdkTool.InputSchema != nil {
		b, err := json.Marshal(sdkTool.InputSchema)
		if err != nil {
			return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
		}
		schema = b
	}

	return toolbox.Tool{
		Name:        sdkTool.Name,
		Description: sdkTool.Description,
		InputSchema: schema,
	}, nil
}

// extractText flattens result content: text is kept verbatim, other content
// kinds become short placeholders. Items are joined with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		switch v := item.(type) {
		case *mcp.TextContent:
			texts = append(texts, v.Text)
		case *mcp.ImageContent:
			texts = append(texts, fmt.Sprintf("[image: %s]", v.MIMEType))
		case *mcp.AudioContent:
			texts = append(texts, fmt.Sprintf("[audio: %s]", v.MIMEType))
		case *mcp.ResourceLink:
			texts = append(texts, fmt.Sprintf("[resource: %s]", v.URI))
		case *mcp.EmbeddedResource:
			if v.Resource == nil {
				continue
			}
			if v.Resource.Text != "" {
				texts = append(texts, v.Resource.Text)
			} else {
				texts = append(texts, fmt.Sprintf("[resource: %s]", v.Resource.URI))
			}
		}
	}

	return strings.Join(texts, "\n")
}
