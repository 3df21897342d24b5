package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glow/internal/control"
)

// newEngineCommands returns the commands that drive the render engine
// through the gateway.
func newEngineCommands(ctx *commandContext) []*cobra.Command {
	var runParams []string
	runCmd := &cobra.Command{
		Use:   "run <animation>",
		Short: "Select and start an animation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(runParams)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				st, err := client.SelectAnimation(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Animation %s running", st.Animation)
				if len(st.Params) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " (%s)", formatParams(st.Params))
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Animation parameter as key=value (repeatable)")

	var setParams []string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Adjust parameters of the running animation",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(setParams)
			if err != nil {
				return err
			}
			if len(params) == 0 {
				return fmt.Errorf("no parameters given (use --param key=value)")
			}
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				st, err := client.SetParameters(cmd.Context(), params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Parameters updated (%s)\n", formatParams(st.Params))
				return nil
			})
		},
	}
	setCmd.Flags().StringArrayVarP(&setParams, "param", "p", nil, "Parameter as key=value (repeatable)")

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Freeze the running animation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				if _, err := client.Pause(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Paused")
				return nil
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused animation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				if _, err := client.Resume(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Resumed")
				return nil
			})
		},
	}

	haltCmd := &cobra.Command{
		Use:   "halt",
		Short: "Stop the animation and black out the stripe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				if _, err := client.Stop(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
				return nil
			})
		},
	}

	brightnessCmd := &cobra.Command{
		Use:   "brightness <0..1>",
		Short: "Set the global brightness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseBrightnessArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				st, err := client.SetBrightness(cmd.Context(), level)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Brightness set to %s\n", formatBrightness(st.Brightness))
				return nil
			})
		},
	}

	var transportParams []string
	transportCmd := &cobra.Command{
		Use:   "transport <name>",
		Short: "Bind the frame output to a transport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(transportParams)
			if err != nil {
				return err
			}
			if params == nil {
				// Fall back to the configured parameters for the
				// named transport so `glow transport udp` just works.
				if cfg := ctx.configValue(); cfg != nil && cfg.Transport.Name == args[0] {
					params = cfg.TransportParams()
				}
			}
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				st, err := client.BindTransport(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transport %s bound\n", st.Transport)
				return nil
			})
		},
	}
	transportCmd.Flags().StringArrayVarP(&transportParams, "param", "p", nil, "Transport parameter as key=value (repeatable)")

	return []*cobra.Command{runCmd, setCmd, pauseCmd, resumeCmd, haltCmd, brightnessCmd, transportCmd}
}
