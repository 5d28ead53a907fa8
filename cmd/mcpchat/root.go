package main

import (
	"io"

	"github.com/spf13/cobra"
)

// cliOptions holds the flags shared by every command. Set flags override the
// config file.
type cliOptions struct {
	configPath    string
	envFile       string
	servers       []string
	model         string
	baseURL       string
	maxToolRounds int
	onCollision   string
	toolErrors    string
	logLevel      string
	noMarkdown    bool
	verbose       bool
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "mcpchat",
		Short: "Chat with a model that can call MCP server tools",
		Long: `mcpchat connects to the configured MCP servers, aggregates their tool
catalogs and starts an interactive prompt. Each query is sent to the chat
model together with every tool; tool calls are routed to the server that
owns the tool and their results are fed back until the model answers.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), opts, in, out, errOut)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return configErr(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to configuration file (default: "+defaultConfigFile+" if present)")
	pf.StringVar(&opts.envFile, "env", ".env", "path to .env file (ignored if missing)")
	pf.StringArrayVar(&opts.servers, "server", nil, "MCP server URL, repeatable; added after the configured servers")
	pf.StringVar(&opts.model, "model", "", "chat model (default \"gpt-4o\")")
	pf.StringVar(&opts.baseURL, "base-url", "", "chat completions base URL (default \"https://api.openai.com/v1\")")
	pf.IntVar(&opts.maxToolRounds, "max-tool-rounds", 0, "maximum tool-call rounds per query (default 5)")
	pf.StringVar(&opts.onCollision, "on-collision", "", "tool name collision policy: last_wins, reject or namespace")
	pf.StringVar(&opts.toolErrors, "tool-errors", "", "failed tool calls: report to the model or abort the query")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (default \"warn\")")
	pf.BoolVar(&opts.noMarkdown, "no-markdown", false, "print answers without markdown rendering")
	pf.BoolVar(&opts.verbose, "verbose", false, "show tool results and token usage after each answer")

	root.AddCommand(
		newAskCmd(opts, out, errOut),
		newToolsCmd(opts, out, errOut),
	)

	return root
}
