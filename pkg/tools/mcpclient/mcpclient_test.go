package mcpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTool struct {
	name    string
	desc    string
	handler func(args json.RawMessage) (*mcp.CallToolResult, error)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func echoTool(name string) testTool {
	return testTool{
		name: name,
		desc: "Echo " + name,
		handler: func(args json.RawMessage) (*mcp.CallToolResult, error) {
			return textResult(string(args)), nil
		},
	}
}

func newTestServer(opts *mcp.ServerOptions, tools ...testTool) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "1.0.0"}, opts)

	for _, tool := range tools {
		handler := tool.handler
		server.AddTool(&mcp.Tool{
			Name:        tool.name,
			Description: tool.desc,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
		}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handler(req.Params.Arguments)
		})
	}

	return server
}

// setupTestClient runs server over in-memory transports and returns a
// connected client. Both sides are torn down with t.Cleanup.
func setupTestClient(t *testing.T, server *mcp.Server) *MCPClient {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx, serverTransport)
	}()
	t.Cleanup(func() {
		cancel()
		<-serverDone
	})

	client, err := newFromTransport(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestListTools(t *testing.T) {
	client := setupTestClient(t, newTestServer(nil, echoTool("get_location"), echoTool("get_weather")))

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	byName := make(map[string]string)
	for _, tool := range tools {
		byName[tool.Name] = tool.Description

		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.InputSchema, &schema))
		assert.Equal(t, "object", schema["type"])
		assert.Nil(t, tool.Handler)
	}
	assert.Equal(t, "Echo get_location", byName["get_location"])
	assert.Equal(t, "Echo get_weather", byName["get_weather"])
}

func TestListTools_FollowsPagination(t *testing.T) {
	server := newTestServer(&mcp.ServerOptions{PageSize: 1}, echoTool("a"), echoTool("b"), echoTool("c"))
	client := setupTestClient(t, server)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 3)
}

func TestCallToolSuccess(t *testing.T) {
	client := setupTestClient(t, newTestServer(nil, echoTool("echo")))

	text, err := client.CallTool(context.Background(), "echo", json.RawMessage(`{"city":"Paris"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Paris"}`, text)
}

func TestCallTool_NilArgumentsSendEmptyObject(t *testing.T) {
	client := setupTestClient(t, newTestServer(nil, echoTool("echo")))

	text, err := client.CallTool(context.Background(), "echo", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, text)
}

func TestCallToolError(t *testing.T) {
	server := newTestServer(nil, testTool{
		name: "fail",
		handler: func(json.RawMessage) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "city not found"}},
				IsError: true,
			}, nil
		},
	})
	client := setupTestClient(t, server)

	text, err := client.CallTool(context.Background(), "fail", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Empty(t, text)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "fail", toolErr.Tool)
	assert.Equal(t, "city not found", toolErr.Message)
}

func TestCallTool_UnknownTool(t *testing.T) {
	client := setupTestClient(t, newTestServer(nil, echoTool("echo")))

	_, err := client.CallTool(context.Background(), "missing", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestCallTool_InvalidArguments(t *testing.T) {
	client := setupTestClient(t, newTestServer(nil, echoTool("echo")))

	_, err := client.CallTool(context.Background(), "echo", json.RawMessage(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal arguments")
}

func TestClose_MakesClientUnusable(t *testing.T) {
	client := setupTestClient(t, newTestServer(nil, echoTool("echo")))

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "second close is a no-op")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.CallTool(ctx, "echo", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = client.ListTools(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDial_StreamableHTTPWithHeaders(t *testing.T) {
	server := newTestServer(nil, echoTool("get_weather"))

	var sawHeader atomic.Bool
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "secret" {
			sawHeader.Store(true)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, Endpoint{
		Name:      "weather",
		URL:       srv.URL,
		Transport: TransportStreamable,
		Headers:   map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_weather", tools[0].Name)
	assert.True(t, sawHeader.Load())
}

func TestDial_SSEOutlivesDialContext(t *testing.T) {
	server := newTestServer(nil, echoTool("get_location"))
	srv := httptest.NewServer(mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server }, nil))
	t.Cleanup(srv.Close)

	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	client, err := NewSSE(dialCtx, srv.URL)
	cancel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	text, err := client.CallTool(ctx, "get_location", json.RawMessage(`{"city":"Paris"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Paris"}`, text)
}

func TestNewSSE_InvalidEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewSSE(ctx, "http://127.0.0.1:1/sse")
	assert.Error(t, err, "NewSSE should fail for unreachable endpoint")
}

func TestDial_MissingURL(t *testing.T) {
	_, err := Dial(context.Background(), Endpoint{Name: "broken", Transport: TransportSSE})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		result *mcp.CallToolResult
		want   string
	}{
		{
			name:   "single text",
			result: textResult("hello"),
			want:   "hello",
		},
		{
			name: "multiple text",
			result: &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: "a"},
					&mcp.TextContent{Text: "b"},
				},
			},
			want: "a\nb",
		},
		{
			name: "mixed content",
			result: &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: "map"},
					&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1}},
					&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{URI: "file:///a.txt", Text: "inline"}},
				},
			},
			want: "map\n[image: image/png]\ninline",
		},
		{
			name:   "empty content",
			result: &mcp.CallToolResult{Content: []mcp.Content{}},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText(tt.result))
		})
	}
}

func TestFromSDKTool(t *testing.T) {
	tool, err := fromSDKTool(&mcp.Tool{
		Name:        "get_weather",
		Description: "Weather for a city",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "get_weather", tool.Name)
	assert.Equal(t, "Weather for a city", tool.Description)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tool.InputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
}

func TestEndpoint_TransportKind(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{name: "explicit", ep: Endpoint{URL: "http://x/sse", Transport: TransportStreamable}, want: TransportStreamable},
		{name: "command", ep: Endpoint{Command: "python", Args: []string{"server.py"}}, want: TransportStdio},
		{name: "sse path", ep: Endpoint{URL: "http://localhost:8200/sse"}, want: TransportSSE},
		{name: "sse path trailing slash", ep: Endpoint{URL: "http://localhost:8200/sse/"}, want: TransportSSE},
		{name: "other path", ep: Endpoint{URL: "http://localhost:8300/mcp"}, want: TransportStreamable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ep.TransportKind())
		})
	}
}

func TestEndpoint_Key(t *testing.T) {
	assert.Equal(t, "weather", Endpoint{Name: "weather", URL: "http://x"}.Key())
	assert.Equal(t, "http://x/sse", Endpoint{URL: "http://x/sse"}.Key())
	assert.Equal(t, "python server.py", Endpoint{Command: "python", Args: []string{"server.py"}}.Key())
}
