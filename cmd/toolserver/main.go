// Toolserver is a small MCP server for trying mcpchat out. It serves a
// get_location tool, a get_weather tool or both, over HTTP (SSE at /sse,
// streamable HTTP elsewhere) or stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/germanamz/mcpchat/pkg/tools/mcpserver"
)

const shutdownTimeout = 5 * time.Second

type serverOptions struct {
	addr     string
	stdio    bool
	tools    []string
	location string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}

func newRootCmd() *cobra.Command {
	opts := &serverOptions{}

	cmd := &cobra.Command{
		Use:           "toolserver",
		Short:         "Serve demo location and weather tools over MCP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol in stdio mode, so logs go to stderr.
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			srv, err := newServer(opts)
			if err != nil {
				return err
			}

			if opts.stdio {
				logger.Info("serving over stdio", "tools", srv.ToolNames())
				return srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
			}
			return serveHTTP(cmd.Context(), opts.addr, srv.Handler(), logger, srv.ToolNames())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "localhost:8200", "listen address for HTTP")
	f.BoolVar(&opts.stdio, "stdio", false, "serve over stdin/stdout instead of HTTP")
	f.StringSliceVar(&opts.tools, "tool", []string{"location", "weather"}, "tools to serve: location, weather")
	f.StringVar(&opts.location, "location", "Paris, France", "answer of get_location")

	return cmd
}

// newServer registers the selected tools.
func newServer(opts *serverOptions) (*mcpserver.MCPServer, error) {
	srv := mcpserver.New("mcpchat-toolserver", "0.1.0")

	for _, name := range opts.tools {
		switch name {
		case "location":
			srv.Register(locationTool(opts.location))
		case "weather":
			srv.Register(weatherTool())
		default:
			return nil, fmt.Errorf("toolserver: unknown tool %q (want location or weather)", name)
		}
	}

	if len(srv.ToolNames()) == 0 {
		return nil, errors.New("toolserver: no tools selected")
	}
	return srv, nil
}

// serveHTTP serves handler at addr until ctx is done, then shuts down.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger, tools []string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("toolserver: listen: %w", err)
	}

	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.Serve(ln)
	}()
	base := "http://" + ln.Addr().String()
	logger.Info("serving HTTP", "sse", base+mcpserver.SSEPath, "streamable", base, "tools", tools)

	select {
	case err := <-errc:
		return fmt.Errorf("toolserver: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("toolserver: shutdown: %w", err)
	}
	return nil
}
