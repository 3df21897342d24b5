package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glow/internal/control"
	"glow/internal/protocol"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current engine state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				st, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, st)
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderStateLines(st, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw state as JSON")
	return cmd
}

func renderStateLines(st *protocol.State, colorize bool) []string {
	kind := statusInfo
	switch st.Status {
	case "running":
		kind = statusOK
	case "paused":
		kind = statusWarn
	}

	lines := []string{
		renderStatusLine("Status", kind, titleLabel(st.Status), colorize),
	}
	if st.Animation != "" {
		detail := st.Animation
		if len(st.Params) > 0 {
			detail += " (" + formatParams(st.Params) + ")"
		}
		lines = append(lines, renderStatusLine("Animation", statusInfo, detail, colorize))
	}
	transport := st.Transport
	transportKind := statusInfo
	if transport == "" {
		transport = "none"
		transportKind = statusWarn
	}
	lines = append(lines,
		renderStatusLine("Transport", transportKind, transport, colorize),
		renderStatusLine("Brightness", statusInfo, formatBrightness(st.Brightness), colorize),
		renderStatusLine("Pixels", statusInfo, fmt.Sprintf("%d", st.Pixels), colorize),
	)
	if st.Status == "running" {
		lines = append(lines, renderStatusLine("Rate", statusInfo, formatFPS(st.IntervalMS)+" fps", colorize))
	}
	lines = append(lines, renderStatusLine("Frames", statusInfo, fmt.Sprintf("%d sent", st.FramesSent), colorize))
	if st.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, st.LastError, colorize))
	}
	return lines
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream state changes as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				cmdCtx := cmd.Context()
				st, err := client.Subscribe(cmdCtx)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, formatWatchLine(st.Seq, st))

				closeClientOnCancel(cmdCtx, client)
				for {
					ev, err := client.NextEvent(cmdCtx)
					if err != nil {
						if cmdCtx.Err() != nil {
							return nil
						}
						return fmt.Errorf("event stream: %w", err)
					}
					fmt.Fprintln(stdout, formatWatchLine(ev.Seq, &ev.State))
				}
			})
		},
	}
}

func formatWatchLine(seq uint64, st *protocol.State) string {
	line := fmt.Sprintf("%s #%d %-7s", st.UpdatedAt.Local().Format("15:04:05"), seq, st.Status)
	if st.Animation != "" {
		line += " " + st.Animation
	}
	line += " brightness=" + formatBrightness(st.Brightness)
	if st.Status == "running" {
		line += " fps=" + formatFPS(st.IntervalMS)
	}
	if st.LastError != "" {
		line += " error=" + st.LastError
	}
	return line
}
