package commands

import (
	"context"
	"fmt"
	"strings"
)

type ProjectsCommand struct{ *Deck }

func (c *ProjectsCommand) Name() string        { return "projects" }
func (c *ProjectsCommand) Description() string { return "List projects." }
func (c *ProjectsCommand) Usage() string       { return "/projects" }

func (c *ProjectsCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	list := c.Session.Projects()
	if len(list) == 0 {
		return "No projects yet. Create one with /newproject.", nil
	}
	selected, hasSelected := c.Workspaces.For(chatID).Project()
	var b strings.Builder
	b.WriteString("<b>Projects</b>\n")
	for i, p := range list {
		marker := ""
		if hasSelected && p.ID == selected.ID {
			marker = " *"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, sanitize(p.Name), marker)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type ProjectCommand struct{ *Deck }

func (c *ProjectCommand) Name() string        { return "project" }
func (c *ProjectCommand) Description() string { return "Select the project jobs run against." }
func (c *ProjectCommand) Usage() string       { return "/project <number|name>" }

func (c *ProjectCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	ws := c.Workspaces.For(chatID)
	if strings.TrimSpace(args) == "" {
		p, ok := ws.Project()
		if !ok {
			return "", usage(c, "no project selected")
		}
		return fmt.Sprintf("Current project: <b>%s</b>", sanitize(p.Name)), nil
	}
	p, err := ws.SelectProject(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Selected project <b>%s</b>.", sanitize(p.Name)), nil
}

type NewProjectCommand struct{ *Deck }

func (c *NewProjectCommand) Name() string        { return "newproject" }
func (c *NewProjectCommand) Description() string { return "Create a project." }
func (c *NewProjectCommand) Usage() string       { return "/newproject <name> [target url]" }

func (c *NewProjectCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", usage(c, "")
	}
	name, target := args, ""
	if last := fields[len(fields)-1]; len(fields) > 1 && looksLikeURL(last) {
		name = strings.Join(fields[:len(fields)-1], " ")
		target = last
	}
	p, err := c.Session.ProjectRepo.Create(ctx, name, target)
	if err != nil {
		return "", err
	}
	if err := c.Session.Refresh(ctx); err != nil {
		return "", err
	}
	if _, err := c.Workspaces.For(chatID).SelectProject(p.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created and selected project <b>%s</b>.", sanitize(p.Name)), nil
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
