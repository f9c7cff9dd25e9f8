package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahul/stepdeck/internal/dispatch"
	"github.com/rahul/stepdeck/internal/session"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Queue work for the browser agent",
	}

	jobCmd.AddCommand(newJobSubmitCommand(ctx, "record", "Queue a recording into a recipe", (*session.Workspace).Record))
	jobCmd.AddCommand(newJobSubmitCommand(ctx, "play", "Queue a playback of a saved recipe", (*session.Workspace).Play))

	return jobCmd
}

type submitFunc func(*session.Workspace, context.Context) (dispatch.Job, error)

func newJobSubmitCommand(ctx *commandContext, use, short string, submit submitFunc) *cobra.Command {
	var projectRef, recipeRef string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				ws, _, err := d.workspace(cmd.Context())
				if err != nil {
					return err
				}
				if projectRef != "" {
					if _, err := ws.SelectProject(projectRef); err != nil {
						return err
					}
				}
				if recipeRef != "" {
					if _, err := ws.Edit(cmd.Context(), recipeRef); err != nil {
						return err
					}
				}
				job, err := submit(ws, cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %s\n", job.Type, job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "Project number, id or name")
	cmd.Flags().StringVarP(&recipeRef, "recipe", "r", "", "Recipe number, id or name")
	return cmd
}
