package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"glow/internal/control"
	"glow/internal/protocol"
)

func newPluginsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List registered animations and transports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				plugins, err := client.ListPlugins(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, plugins)
				}
				if len(plugins) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No plugins registered")
					return nil
				}
				table := renderTable(
					[]string{"Kind", "Name", "Parameters", "Summary"},
					buildPluginRows(plugins),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the plugin list as JSON")
	return cmd
}

func buildPluginRows(plugins []protocol.PluginInfo) [][]string {
	sorted := make([]protocol.PluginInfo, len(plugins))
	copy(sorted, plugins)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		return sorted[i].Name < sorted[j].Name
	})

	rows := make([][]string, 0, len(sorted))
	for _, p := range sorted {
		rows = append(rows, []string{
			titleLabel(p.Kind),
			p.Name,
			formatParamList(p.Params),
			p.Summary,
		})
	}
	return rows
}

func formatParamList(params []protocol.ParamInfo) string {
	if len(params) == 0 {
		return "-"
	}
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
