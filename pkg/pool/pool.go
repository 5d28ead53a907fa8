// Package pool owns the MCP sessions of a client: one live session per
// endpoint, kept in connection order, closed exactly once.
package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/germanamz/mcpchat/pkg/tools/mcpclient"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
)

var (
	// ErrSessionNotFound is returned by Get for an endpoint that was never
	// connected, or once the pool is closed.
	ErrSessionNotFound = errors.New("pool: session not found")

	// ErrDuplicateEndpoint is reported for an endpoint whose key is already
	// connected.
	ErrDuplicateEndpoint = errors.New("pool: duplicate endpoint")

	// ErrClosed is reported by Connect after CloseAll.
	ErrClosed = errors.New("pool: closed")
)

// Session is a live connection to one MCP server.
type Session interface {
	ListTools(ctx context.Context) ([]toolbox.Tool, error)
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error)
	Close() error
}

// Dialer opens a handshake-completed session with an endpoint.
type Dialer func(ctx context.Context, ep mcpclient.Endpoint) (Session, error)

// DialMCP is the default Dialer. It connects with the MCP SDK.
func DialMCP(ctx context.Context, ep mcpclient.Endpoint) (Session, error) {
	c, err := mcpclient.Dial(ctx, ep)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Options configures a Pool.
type Options struct {
	Logger *slog.Logger
	// ConnectTimeout bounds dial, handshake and the initial tool listing of
	// each endpoint. Zero means no limit beyond the caller's context.
	ConnectTimeout time.Duration
}

// Pool maps endpoints to their sessions.
type Pool struct {
	dialer  Dialer
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	order    []mcpclient.Endpoint
	sessions map[string]Session
	closed   bool

	closeOnce sync.Once
	closeErr  error
}

// New creates an empty Pool. A nil dialer means DialMCP.
func New(dialer Dialer, opts Options) *Pool {
	if dialer == nil {
		dialer = DialMCP
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pool{
		dialer:   dialer,
		logger:   logger,
		timeout:  opts.ConnectTimeout,
		sessions: make(map[string]Session),
	}
}

// Connect attempts every endpoint in order: dial, handshake and an initial
// tool listing. A failing endpoint never enters the pool and does not stop
// the others. The returned Report has one result per endpoint.
func (p *Pool) Connect(ctx context.Context, endpoints []mcpclient.Endpoint) Report {
	report := Report{Results: make([]ConnectResult, 0, len(endpoints))}

	for _, ep := range endpoints {
		result := ConnectResult{Endpoint: ep}
		result.Tools, result.Err = p.connect(ctx, ep)
		if result.Err != nil {
			p.logger.WarnContext(ctx, "mcp connect failed", "endpoint", ep.Key(), "error", result.Err)
		} else {
			p.logger.InfoContext(ctx, "mcp connected", "endpoint", ep.Key(),
				"transport", ep.TransportKind(), "tools", len(result.Tools))
		}
		report.Results = append(report.Results, result)
	}

	return report
}

func (p *Pool) connect(ctx context.Context, ep mcpclient.Endpoint) ([]toolbox.Tool, error) {
	key := ep.Key()
	if key == "" {
		return nil, &ConnectError{Endpoint: ep.String(), Err: errors.New("endpoint has no address")}
	}

	p.mu.Lock()
	closed := p.closed
	_, exists := p.sessions[key]
	p.mu.Unlock()

	if closed {
		return nil, &ConnectError{Endpoint: key, Err: ErrClosed}
	}
	if exists {
		return nil, &ConnectError{Endpoint: key, Err: ErrDuplicateEndpoint}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	session, err := p.dialer(ctx, ep)
	if err != nil {
		return nil, &ConnectError{Endpoint: key, Err: err}
	}

	tools, err := session.ListTools(ctx)
	if err != nil {
		_ = session.Close()
		return nil, &ConnectError{Endpoint: key, Err: fmt.Errorf("list tools: %w", err)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = session.Close()
		return nil, &ConnectError{Endpoint: key, Err: ErrClosed}
	}
	p.sessions[key] = session
	p.order = append(p.order, ep)

	return tools, nil
}

// Get returns the session of the endpoint with the given key.
func (p *Pool) Get(key string) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("%w: %q (pool closed)", ErrSessionNotFound, key)
	}
	s, ok := p.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, key)
	}
	return s, nil
}

// Endpoints returns the connected endpoints in connection order.
func (p *Pool) Endpoints() []mcpclient.Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	out := make([]mcpclient.Endpoint, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of live sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// CloseAll closes every session. Only the first call does any work; later
// calls return the same error.
func (p *Pool) CloseAll() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		order := p.order
		sessions := p.sessions
		p.closed = true
		p.order = nil
		p.sessions = map[string]Session{}
		p.mu.Unlock()

		var errs []error
		for _, ep := range order {
			key := ep.Key()
			if err := sessions[key].Close(); err != nil {
				p.logger.Warn("mcp close failed", "endpoint", key, "error", err)
				errs = append(errs, fmt.Errorf("pool: close %q: %w", key, err))
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}
