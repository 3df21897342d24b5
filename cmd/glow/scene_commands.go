package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"glow/internal/control"
	"glow/internal/protocol"
)

func newSceneCommand(ctx *commandContext) *cobra.Command {
	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Manage saved presets",
	}

	sceneCmd.AddCommand(newSceneListCommand(ctx))
	sceneCmd.AddCommand(newSceneSaveCommand(ctx))
	sceneCmd.AddCommand(newSceneDeleteCommand(ctx))
	sceneCmd.AddCommand(newSceneRenameCommand(ctx))
	sceneCmd.AddCommand(newSceneActivateCommand(ctx))

	return sceneCmd
}

func newSceneListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				scenes, err := client.Scenes(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, scenes)
				}
				if len(scenes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scenes saved")
					return nil
				}
				table := renderTable(
					[]string{"Name", "Animation", "Brightness", "Updated"},
					buildSceneRows(scenes),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the scene list as JSON")
	return cmd
}

func buildSceneRows(scenes []protocol.SceneInfo) [][]string {
	sorted := make([]protocol.SceneInfo, len(scenes))
	copy(sorted, scenes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([][]string, 0, len(sorted))
	for _, sc := range sorted {
		rows = append(rows, []string{
			sc.Name,
			sc.Animation,
			formatBrightness(sc.Brightness),
			sc.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func newSceneSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save the current animation and parameters as a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				sc, err := client.SaveScene(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %q saved (animation %s, brightness %s)\n",
					sc.Name, sc.Animation, formatBrightness(sc.Brightness))
				return nil
			})
		},
	}
}

func newSceneDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				if err := client.DeleteScene(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %q deleted\n", args[0])
				return nil
			})
		},
	}
}

func newSceneRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a saved scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				if err := client.RenameScene(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %q renamed to %q\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newSceneActivateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <name>",
		Short: "Apply a saved scene to the stripe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *control.Client) error {
				st, err := client.ActivateScene(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %q active (animation %s)\n", args[0], st.Animation)
				return nil
			})
		},
	}
}
