package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/germanamz/mcpchat/pkg/conversation"
	"github.com/germanamz/mcpchat/pkg/dispatch"
	"github.com/germanamz/mcpchat/pkg/modeladapter"
	"github.com/germanamz/mcpchat/pkg/pool"
	"github.com/germanamz/mcpchat/pkg/registry"
)

// ErrNoServers is returned by New when no MCP server could be connected.
var ErrNoServers = errors.New("engine: no mcp server connected")

// Option customizes New.
type Option func(*options)

type options struct {
	dialer    pool.Dialer
	completer modeladapter.Completer
	logger    *slog.Logger
}

// WithDialer replaces the dialer used to open MCP sessions.
func WithDialer(d pool.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithCompleter replaces the completer built from the provider config.
func WithCompleter(c modeladapter.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client is the composition root that assembles the session pool, registry,
// dispatcher and conversation driver from configuration.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	completer  modeladapter.Completer
	pool       *pool.Pool
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	driver     *conversation.Driver
	report     pool.Report

	closeOnce sync.Once
	closeErr  error
}

// New creates a Client. It validates the config, builds the completer and
// connects every configured server. Servers that fail to connect are kept in
// the Report; New fails only when none connected, or when any failed and
// connect.require_all is set. The pool is closed on every failure.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{dialer: pool.DialMCP}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	completer := o.completer
	if completer == nil {
		c, err := buildCompleter(cfg.Provider)
		if err != nil {
			return nil, err
		}
		completer = c
	}

	// Validate already accepted both policies.
	policy, _ := registry.ParseCollisionPolicy(cfg.Registry.OnCollision)
	toolErrors, _ := conversation.ParseToolErrorPolicy(cfg.Conversation.ToolErrors)

	p := pool.New(o.dialer, pool.Options{
		Logger:         o.logger,
		ConnectTimeout: cfg.Connect.Timeout,
	})

	report := p.Connect(ctx, cfg.Endpoints())
	if report.Connected() == 0 {
		_ = p.CloseAll()
		return nil, fmt.Errorf("%w: %w", ErrNoServers, report.Err())
	}
	if cfg.Connect.RequireAll && report.Err() != nil {
		_ = p.CloseAll()
		return nil, fmt.Errorf("engine: connect: %w", report.Err())
	}

	reg := registry.New(p, registry.Options{Policy: policy, Logger: o.logger})
	disp := dispatch.New(reg, p, o.logger)
	driver := conversation.New(completer, reg, disp, conversation.Options{
		SystemPrompt:  cfg.Conversation.SystemPrompt,
		MaxToolRounds: cfg.Conversation.MaxToolRounds,
		ToolErrors:    toolErrors,
		Logger:        o.logger,
	})

	o.logger.Info("client ready",
		"connected", report.Connected(),
		"failed", len(report.Failed()),
		"tools", len(report.Tools()),
	)

	return &Client{
		cfg:        cfg,
		logger:     o.logger,
		completer:  completer,
		pool:       p,
		registry:   reg,
		dispatcher: disp,
		driver:     driver,
		report:     report,
	}, nil
}

// Config returns the effective configuration, defaults included.
func (c *Client) Config() Config { return c.cfg }

// Report returns the outcome of the startup connect phase.
func (c *Client) Report() pool.Report { return c.report }

// Model returns the chat model name, or "" when the completer does not
// report one.
func (c *Client) Model() string {
	if r, ok := c.completer.(modeladapter.UsageReporter); ok {
		return r.ModelName()
	}
	return ""
}

// Tools rebuilds the registry and returns its routing entries in catalog
// order.
func (c *Client) Tools(ctx context.Context) ([]registry.Entry, error) {
	if _, err := c.registry.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("engine: tools: %w", err)
	}
	return c.registry.Entries(), nil
}

// Process answers one query through the conversation driver.
func (c *Client) Process(ctx context.Context, query string) (conversation.Result, error) {
	return c.driver.Process(ctx, query)
}

// Close closes every session. It is safe to call more than once; later calls
// return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.pool.CloseAll()
		c.logger.Debug("client closed", "error", c.closeErr)
	})
	return c.closeErr
}
