package mcpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport kinds an Endpoint can use.
const (
	TransportSSE        = "sse"
	TransportStreamable = "streamable"
	TransportStdio      = "stdio"
)

// Endpoint identifies one remote tool server. URL is used by the HTTP
// transports, Command and Args by stdio.
type Endpoint struct {
	Name      string
	URL       string
	Transport string
	Command   string
	Args      []string
	Env       map[string]string
	Headers   map[string]string
}

// Key returns the identifier the endpoint is tracked by: its Name, falling
// back to the URL or the command line.
func (e Endpoint) Key() string {
	switch {
	case e.Name != "":
		return e.Name
	case e.URL != "":
		return e.URL
	default:
		return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	}
}

// TransportKind returns the configured transport or infers one: a command
// means stdio, a URL path ending in /sse means SSE, anything else is
// streamable HTTP.
func (e Endpoint) TransportKind() string {
	if e.Transport != "" {
		return e.Transport
	}
	if e.Command != "" {
		return TransportStdio
	}
	if u, err := url.Parse(e.URL); err == nil && strings.HasSuffix(strings.TrimRight(u.Path, "/"), "/sse") {
		return TransportSSE
	}
	return TransportStreamable
}

func (e Endpoint) String() string {
	return e.Key()
}

// transport builds the SDK transport for the endpoint.
func (e Endpoint) transport() (mcp.Transport, error) {
	switch kind := e.TransportKind(); kind {
	case TransportSSE:
		if e.URL == "" {
			return nil, fmt.Errorf("endpoint %q: url is required for %s transport", e.Key(), kind)
		}
		return detachedTransport{&mcp.SSEClientTransport{Endpoint: e.URL, HTTPClient: e.httpClient()}}, nil

	case TransportStreamable:
		if e.URL == "" {
			return nil, fmt.Errorf("endpoint %q: url is required for %s transport", e.Key(), kind)
		}
		return &mcp.StreamableClientTransport{Endpoint: e.URL, HTTPClient: e.httpClient()}, nil

	case TransportStdio:
		if e.Command == "" {
			return nil, fmt.Errorf("endpoint %q: command is required for stdio transport", e.Key())
		}
		cmd := exec.Command(e.Command, e.Args...) //nolint:gosec // command comes from the user's configuration
		if len(e.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range e.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		return &mcp.CommandTransport{Command: cmd}, nil

	default:
		return nil, fmt.Errorf("endpoint %q: unsupported transport %q", e.Key(), kind)
	}
}

// httpClient returns a client that adds the endpoint's static headers to
// every request, or nil to let the SDK use its default.
func (e Endpoint) httpClient() *http.Client {
	if len(e.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{headers: e.Headers, base: http.DefaultTransport},
	}
}

// headerTransport sets fixed headers on each outgoing request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
