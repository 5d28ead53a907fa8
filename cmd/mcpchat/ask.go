package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *cliOptions, out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   `ask "<query>"`,
		Short: "Answer a single query and exit",
		Long: `Connect to the MCP servers, answer one query, print the result and
close every session. The connect summary goes to stderr so stdout only
carries the answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts, errOut)
			if err != nil {
				return err
			}

			client, err := connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeClient(client, logger)

			printReport(errOut, client.Report())

			sh := newShell(client, cfg, nil, out, logger)
			if err := sh.Ask(cmd.Context(), strings.Join(args, " ")); err != nil {
				return &exitError{code: exitRuntime, err: err, reported: true}
			}
			return nil
		},
	}
}
