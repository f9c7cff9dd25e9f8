package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/stepdeck/internal/recipe"
)

type RecipesCommand struct{ *Deck }

func (c *RecipesCommand) Name() string        { return "recipes" }
func (c *RecipesCommand) Description() string { return "List saved recipes." }
func (c *RecipesCommand) Usage() string       { return "/recipes" }

func (c *RecipesCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	list := c.Session.Recipes()
	if len(list) == 0 {
		return "No recipes yet. Create one with /new.", nil
	}
	open, _, hasOpen := c.Workspaces.For(chatID).Open()
	var b strings.Builder
	b.WriteString("<b>Recipes</b>\n")
	for i, r := range list {
		marker := ""
		if hasOpen && r.ID == open.ID {
			marker = " (editing)"
		}
		fmt.Fprintf(&b, "%d. %s - %d steps%s\n", i+1, sanitize(r.Name), r.Len(), marker)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type NewCommand struct{ *Deck }

func (c *NewCommand) Name() string        { return "new" }
func (c *NewCommand) Description() string { return "Create an empty recipe and open it." }
func (c *NewCommand) Usage() string       { return "/new <name>" }

func (c *NewCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "", usage(c, "")
	}
	r, err := c.Workspaces.For(chatID).NewRecipe(ctx, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created recipe <b>%s</b>. Add steps with /add.", sanitize(r.Name)), nil
}

type EditCommand struct{ *Deck }

func (c *EditCommand) Name() string        { return "edit" }
func (c *EditCommand) Description() string { return "Open a saved recipe for editing." }
func (c *EditCommand) Usage() string       { return "/edit <number|name>" }

func (c *EditCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "", usage(c, "")
	}
	r, err := c.Workspaces.For(chatID).Edit(ctx, args)
	if err != nil {
		return "", err
	}
	return formatRecipe(r, false), nil
}

type StepsCommand struct{ *Deck }

func (c *StepsCommand) Name() string        { return "steps" }
func (c *StepsCommand) Description() string { return "Show the open recipe." }
func (c *StepsCommand) Usage() string       { return "/steps" }

func (c *StepsCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	r, dirty, ok := c.Workspaces.For(chatID).Open()
	if !ok {
		return "No recipe is open. Use /new or /edit.", nil
	}
	return formatRecipe(r, dirty), nil
}

type AddCommand struct{ *Deck }

func (c *AddCommand) Name() string        { return "add" }
func (c *AddCommand) Description() string { return "Append a step to the open recipe." }
func (c *AddCommand) Usage() string {
	return "/add <navigate|click|type|wait|sleep> <value>"
}

func (c *AddCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	kindArg, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	if kindArg == "" {
		return "", usage(c, "")
	}
	kind, err := recipe.ParseKind(kindArg)
	if err != nil {
		return "", usage(c, err.Error())
	}
	r, err := c.Workspaces.For(chatID).Append(kind, strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return formatRecipe(r, true), nil
}

type RemoveCommand struct{ *Deck }

func (c *RemoveCommand) Name() string        { return "rm" }
func (c *RemoveCommand) Description() string { return "Remove a step from the open recipe." }
func (c *RemoveCommand) Usage() string       { return "/rm <step number>" }

func (c *RemoveCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	pos, err := parsePosition(args)
	if err != nil {
		return "", usage(c, err.Error())
	}
	r, err := c.Workspaces.For(chatID).RemoveAt(pos)
	if err != nil {
		return "", err
	}
	return formatRecipe(r, true), nil
}

type MoveCommand struct{ *Deck }

func (c *MoveCommand) Name() string        { return "move" }
func (c *MoveCommand) Description() string { return "Move a step to another position." }
func (c *MoveCommand) Usage() string       { return "/move <from> <to>" }

func (c *MoveCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", usage(c, "")
	}
	from, err := parsePosition(fields[0])
	if err != nil {
		return "", usage(c, err.Error())
	}
	to, err := parsePosition(fields[1])
	if err != nil {
		return "", usage(c, err.Error())
	}
	r, err := c.Workspaces.For(chatID).Move(from, to)
	if err != nil {
		return "", err
	}
	return formatRecipe(r, true), nil
}

type SaveCommand struct{ *Deck }

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Description() string { return "Save the open recipe." }
func (c *SaveCommand) Usage() string       { return "/save" }

func (c *SaveCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	r, err := c.Workspaces.For(chatID).Save(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved <b>%s</b> with %d steps.", sanitize(r.Name), r.Len()), nil
}

type DiscardCommand struct{ *Deck }

func (c *DiscardCommand) Name() string        { return "discard" }
func (c *DiscardCommand) Description() string { return "Drop unsaved edits to the open recipe." }
func (c *DiscardCommand) Usage() string       { return "/discard" }

func (c *DiscardCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	r, err := c.Workspaces.For(chatID).Discard(ctx)
	if err != nil {
		return "", err
	}
	return formatRecipe(r, false), nil
}

type DeleteCommand struct{ *Deck }

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Description() string { return "Delete a saved recipe for good." }
func (c *DeleteCommand) Usage() string       { return "/delete <number|name>" }

func (c *DeleteCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "", usage(c, "")
	}
	r, err := c.Workspaces.For(chatID).DeleteRecipe(ctx, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted <b>%s</b>.", sanitize(r.Name)), nil
}
