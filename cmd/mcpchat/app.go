package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/germanamz/mcpchat/pkg/engine"
	"github.com/germanamz/mcpchat/pkg/pool"
	"github.com/germanamz/mcpchat/pkg/shell"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
)

// defaultConfigFile is loaded from the working directory when --config is
// not given.
const defaultConfigFile = "mcpchat.yaml"

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig resolves the config file, applies the flags on top of it, fills
// in defaults and validates the result.
func loadConfig(opts *cliOptions) (engine.Config, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	var cfg engine.Config
	if path != "" {
		loaded, err := engine.LoadConfig(path)
		if err != nil {
			return engine.Config{}, err
		}
		cfg = loaded
	}

	opts.apply(&cfg)
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

func (o *cliOptions) apply(cfg *engine.Config) {
	for _, url := range o.servers {
		cfg.MCPServers = append(cfg.MCPServers, engine.MCPConfig{URL: url})
	}
	if o.model != "" {
		cfg.Provider.Model = o.model
	}
	if o.baseURL != "" {
		cfg.Provider.BaseURL = o.baseURL
	}
	if o.maxToolRounds != 0 {
		cfg.Conversation.MaxToolRounds = o.maxToolRounds
	}
	if o.onCollision != "" {
		cfg.Registry.OnCollision = o.onCollision
	}
	if o.toolErrors != "" {
		cfg.Conversation.ToolErrors = o.toolErrors
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.noMarkdown {
		off := false
		cfg.Shell.Markdown = &off
	}
	if o.verbose {
		cfg.Shell.Verbose = true
	}
}

// newLogger builds a text logger on w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// setup loads the environment and configuration shared by every command.
func setup(opts *cliOptions, errOut io.Writer) (engine.Config, *slog.Logger, error) {
	if err := loadDotEnv(opts.envFile); err != nil {
		return engine.Config{}, nil, configErr(fmt.Errorf("load env: %w", err))
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return engine.Config{}, nil, configErr(err)
	}

	logger, err := newLogger(errOut, cfg.LogLevel)
	if err != nil {
		return engine.Config{}, nil, configErr(err)
	}

	return cfg, logger, nil
}

// connect builds the client. Configuration problems and connection failures
// map to their own exit codes.
func connect(ctx context.Context, cfg engine.Config, logger *slog.Logger) (*engine.Client, error) {
	client, err := engine.New(ctx, cfg, engine.WithLogger(logger))
	if err != nil {
		var cfgErr *engine.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, configErr(err)
		}
		return nil, connectErr(err)
	}
	return client, nil
}

// printReport writes the connect summary: one warning per failed server and
// the aggregated tool names.
func printReport(w io.Writer, report pool.Report) {
	for _, res := range report.Failed() {
		fmt.Fprintf(w, "warning: %v\n", res.Err)
	}
	fmt.Fprintf(w, "\nConnected to %d server(s) with tools: [%s]\n",
		report.Connected(), strings.Join(toolbox.Names(report.Tools()), ", "))
}

// closeClient closes the client and logs a failure; the command result is
// already decided.
func closeClient(client *engine.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("close sessions", "error", err)
	}
}

// terminal reports whether w is a terminal and its width in columns.
func terminal(w io.Writer) (isTTY bool, width int) {
	f, ok := w.(*os.File)
	if !ok {
		return false, 0
	}
	fd := int(f.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return false, 0
	}
	if cols, _, err := term.GetSize(fd); err == nil {
		width = cols
	}
	return true, width
}

// newShell builds the prompt for client. Colors and markdown are only used on
// a terminal.
func newShell(client *engine.Client, cfg engine.Config, in io.Reader, out io.Writer, logger *slog.Logger) *shell.Shell {
	tty, width := terminal(out)

	return shell.New(client, shell.Options{
		In:          in,
		Out:         out,
		Prompt:      cfg.Shell.Prompt,
		ExitCommand: cfg.Shell.ExitCommand,
		Styled:      tty,
		Markdown:    tty && cfg.Shell.MarkdownEnabled(),
		Verbose:     cfg.Shell.Verbose,
		Width:       width,
		Logger:      logger,
	})
}

// runInteractive connects, prints the summary and banner, and runs the prompt
// until the exit command, end of input or a signal.
func runInteractive(ctx context.Context, opts *cliOptions, in io.Reader, out, errOut io.Writer) error {
	cfg, logger, err := setup(opts, errOut)
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	printReport(out, client.Report())

	sh := newShell(client, cfg, in, out, logger)
	sh.Banner()

	return sh.Run(ctx)
}
