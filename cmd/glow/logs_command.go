package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"glow/internal/control"
	"glow/internal/protocol"
)

// logsFetchLimit is the per-request batch size used when draining the
// daemon's buffered log lines.
const logsFetchLimit = 500

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				cmdCtx := cmd.Context()
				stdout := cmd.OutOrStdout()

				// Drain everything the daemon still buffers, then keep
				// the tail the user asked for.
				var buffered []protocol.LogLine
				since := uint64(0)
				for {
					batch, next, err := client.LogTail(cmdCtx, since, logsFetchLimit, false)
					if err != nil {
						return fmt.Errorf("tail logs: %w", err)
					}
					buffered = append(buffered, batch...)
					since = next
					if len(batch) == 0 {
						break
					}
				}
				if lines > 0 && len(buffered) > lines {
					buffered = buffered[len(buffered)-lines:]
				}
				for _, line := range buffered {
					fmt.Fprintln(stdout, formatLogLine(line))
				}

				if !follow {
					if len(buffered) == 0 {
						fmt.Fprintln(stdout, "No log entries available")
					}
					return nil
				}

				closeClientOnCancel(cmdCtx, client)
				for {
					batch, next, err := client.LogTail(cmdCtx, since, 0, true)
					if err != nil {
						if cmdCtx.Err() != nil {
							return nil
						}
						return fmt.Errorf("follow logs: %w", err)
					}
					for _, line := range batch {
						fmt.Fprintln(stdout, formatLogLine(line))
					}
					since = next
					select {
					case <-cmdCtx.Done():
						return nil
					default:
					}
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

func formatLogLine(line protocol.LogLine) string {
	level := strings.ToUpper(strings.TrimSpace(line.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{
		line.Timestamp.Local().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("%-5s", level),
	}
	if component := strings.TrimSpace(line.Component); component != "" {
		parts = append(parts, "["+component+"]")
	}
	parts = append(parts, line.Message)
	out := strings.Join(parts, " ")

	if line.Animation != "" {
		out += " animation=" + line.Animation
	}
	if line.Transport != "" {
		out += " transport=" + line.Transport
	}
	if len(line.Fields) > 0 {
		keys := make([]string, 0, len(line.Fields))
		for key := range line.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out += " " + key + "=" + line.Fields[key]
		}
	}
	return out
}
