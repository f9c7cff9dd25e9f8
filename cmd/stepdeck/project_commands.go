package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "List and add projects",
	}

	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectAddCommand(ctx))

	return projectCmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				list, err := d.projects.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No projects")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for i, p := range list {
					rows = append(rows, []string{strconv.Itoa(i + 1), p.Name, p.TargetURL, p.ID})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Name", "Target", "ID"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
}

func newProjectAddCommand(ctx *commandContext) *cobra.Command {
	var targetURL string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				p, err := d.projects.Create(cmd.Context(), strings.Join(args, " "), strings.TrimSpace(targetURL))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "", "Start URL the agent opens for this project")
	return cmd
}
