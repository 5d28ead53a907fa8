// Package dispatch forwards tool calls to the session that owns the tool.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/germanamz/mcpchat/pkg/pool"
	"github.com/germanamz/mcpchat/pkg/registry"
)

// Resolver maps an exposed tool name to its routing entry.
type Resolver interface {
	Resolve(name string) (registry.Entry, error)
}

// Sessions hands out the session of an endpoint.
type Sessions interface {
	Get(key string) (pool.Session, error)
}

// Dispatcher routes tool invocations. It does not retry and does not impose
// timeouts of its own.
type Dispatcher struct {
	resolver Resolver
	sessions Sessions
	logger   *slog.Logger
}

// New creates a Dispatcher. A nil logger discards output.
func New(resolver Resolver, sessions Sessions, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{resolver: resolver, sessions: sessions, logger: logger}
}

// Invoke calls the tool exposed as name with a JSON object of arguments and
// returns its raw text result. Unknown names fail with registry.ErrToolNotFound
// before any remote call is made. Remote errors are returned wrapped, so
// errors.Is and errors.As still match them.
func (d *Dispatcher) Invoke(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	entry, err := d.resolver.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("dispatch: %w", err)
	}

	key := entry.Endpoint.Key()
	session, err := d.sessions.Get(key)
	if err != nil {
		// The registry only routes to live endpoints, so this is a bug.
		d.logger.ErrorContext(ctx, "routed tool has no session", "tool", name, "endpoint", key, "error", err)
		return "", fmt.Errorf("dispatch: tool %q: %w", name, err)
	}

	start := time.Now()
	out, err := session.CallTool(ctx, entry.RemoteName, arguments)
	d.logger.DebugContext(ctx, "tool call",
		"tool", entry.RemoteName,
		"endpoint", key,
		"duration", time.Since(start),
		"ok", err == nil,
	)
	if err != nil {
		return "", fmt.Errorf("dispatch: %q on %q: %w", entry.RemoteName, key, err)
	}

	return out, nil
}
