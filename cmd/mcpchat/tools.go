package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/germanamz/mcpchat/pkg/registry"
	"github.com/germanamz/mcpchat/pkg/shell"
)

// toolInfo is the JSON form of one routing entry.
type toolInfo struct {
	Name        string          `json:"name"`
	Endpoint    string          `json:"endpoint"`
	RemoteName  string          `json:"remote_name,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

func newToolsCmd(opts *cliOptions, out, errOut io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the aggregated tool catalog",
		Long:  `Connect to the MCP servers and list every reachable tool with the server that owns it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			entries, err := client.Tools(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeToolsJSON(out, entries)
			}
			return writeToolsTable(out, entries)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")

	return cmd
}

func writeToolsJSON(w io.Writer, entries []registry.Entry) error {
	infos := make([]toolInfo, len(entries))
	for i, e := range entries {
		info := toolInfo{
			Name:        e.Name,
			Endpoint:    e.Endpoint.Key(),
			Description: e.Tool.Description,
			InputSchema: e.Tool.Schema(),
		}
		if e.RemoteName != e.Name {
			info.RemoteName = e.RemoteName
		}
		infos[i] = info
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(infos); err != nil {
		return fmt.Errorf("encode tools: %w", err)
	}
	return nil
}

func writeToolsTable(w io.Writer, entries []registry.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSERVER\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Endpoint.Key(), shell.Truncate(e.Tool.Description, 60))
	}
	return tw.Flush()
}
