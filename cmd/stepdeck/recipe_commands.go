package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/session"
)

func newRecipeCommand(ctx *commandContext) *cobra.Command {
	recipeCmd := &cobra.Command{
		Use:   "recipe",
		Short: "Create, inspect and edit recipes",
	}

	recipeCmd.AddCommand(newRecipeListCommand(ctx))
	recipeCmd.AddCommand(newRecipeNewCommand(ctx))
	recipeCmd.AddCommand(newRecipeShowCommand(ctx))
	recipeCmd.AddCommand(newRecipeAddStepCommand(ctx))
	recipeCmd.AddCommand(newRecipeRemoveStepCommand(ctx))
	recipeCmd.AddCommand(newRecipeMoveStepCommand(ctx))
	recipeCmd.AddCommand(newRecipeDeleteCommand(ctx))
	recipeCmd.AddCommand(newRecipeExportCommand(ctx))

	return recipeCmd
}

func newRecipeListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				list, err := d.recipes.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No recipes")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for i, r := range list {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						r.Name,
						strconv.Itoa(r.Len()),
						r.ID,
						r.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Name", "Steps", "ID", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newRecipeNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty recipe",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				ws, _, err := d.workspace(cmd.Context())
				if err != nil {
					return err
				}
				r, err := ws.NewRecipe(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created recipe %s (%s)\n", r.Name, r.ID)
				return nil
			})
		},
	}
}

func newRecipeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recipe>",
		Short: "Show a recipe's steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				ws, _, err := d.workspace(cmd.Context())
				if err != nil {
					return err
				}
				r, err := ws.Edit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRecipe(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

// editAndSave opens ref, applies edit and saves, all in one invocation.
func editAndSave(cmd *cobra.Command, ctx *commandContext, ref string, edit func(*session.Workspace) error) error {
	return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
		ws, _, err := d.workspace(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := ws.Edit(cmd.Context(), ref); err != nil {
			return err
		}
		if err := edit(ws); err != nil {
			return err
		}
		saved, err := ws.Save(cmd.Context())
		if err != nil {
			return err
		}
		printRecipe(cmd.OutOrStdout(), saved)
		return nil
	})
}

func newRecipeAddStepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-step <recipe> <kind> [value...]",
		Short: "Append a step",
		Long: "Append a step to a recipe. Kinds: " + kindList() +
			" (aliases: nav, click, type, wait).",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := recipe.ParseKind(args[1])
			if err != nil {
				return err
			}
			value := strings.Join(args[2:], " ")
			return editAndSave(cmd, ctx, args[0], func(ws *session.Workspace) error {
				_, err := ws.Append(kind, value)
				return err
			})
		},
	}
}

func newRecipeRemoveStepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-step <recipe> <position>",
		Short: "Remove the step at a 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return editAndSave(cmd, ctx, args[0], func(ws *session.Workspace) error {
				_, err := ws.RemoveAt(pos)
				return err
			})
		},
	}
}

func newRecipeMoveStepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move-step <recipe> <from> <to>",
		Short: "Move a step between 1-based positions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			return editAndSave(cmd, ctx, args[0], func(ws *session.Workspace) error {
				_, err := ws.Move(from, to)
				return err
			})
		},
	}
}

func newRecipeDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recipe>",
		Short: "Delete a recipe for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				ws, _, err := d.workspace(cmd.Context())
				if err != nil {
					return err
				}
				r, err := ws.DeleteRecipe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted recipe %s (%s)\n", r.Name, r.ID)
				return nil
			})
		},
	}
}

func newRecipeExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <recipe>",
		Short: "Write a recipe as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeck(cmd.ErrOrStderr(), func(d *deck) error {
				ws, _, err := d.workspace(cmd.Context())
				if err != nil {
					return err
				}
				r, err := ws.Edit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if outputPath == "" {
					return recipe.ExportYAML(cmd.OutOrStdout(), r)
				}
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outputPath, err)
				}
				if err := recipe.ExportYAML(f, r); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func printRecipe(out io.Writer, r recipe.Recipe) {
	fmt.Fprintf(out, "%s (%s)\n", r.Name, r.ID)
	if r.Len() == 0 {
		fmt.Fprintln(out, "  no steps")
		return
	}
	rows := make([][]string, 0, r.Len())
	for _, s := range r.Steps {
		rows = append(rows, []string{strconv.Itoa(s.Order), string(s.Kind()), s.Value()})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Kind", "Value"}, rows, []columnAlignment{alignRight}))
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid step position %q", s)
	}
	return n - 1, nil
}

func kindList() string {
	names := make([]string, 0, len(recipe.Kinds))
	for _, k := range recipe.Kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
