package commands

import (
	"context"
	"fmt"
	"html"
	"strings"
)

type HelpCommand struct {
	Registry *Registry
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List the available commands." }
func (c *HelpCommand) Usage() string       { return "/help" }

func (c *HelpCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	var b strings.Builder
	b.WriteString("<b>Commands</b>\n")
	for _, cmd := range c.Registry.List() {
		fmt.Fprintf(&b, "%s - %s\n", html.EscapeString(cmd.Usage()), cmd.Description())
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type WhoAmICommand struct{ *Deck }

func (c *WhoAmICommand) Name() string        { return "whoami" }
func (c *WhoAmICommand) Description() string { return "Show the signed-in operator." }
func (c *WhoAmICommand) Usage() string       { return "/whoami" }

func (c *WhoAmICommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	u, ok := c.Session.CurrentUser()
	if !ok {
		return "Nobody is signed in.", nil
	}
	name := u.DisplayName
	if name == "" {
		name = u.ID
	}
	return fmt.Sprintf("Signed in as <b>%s</b> (<code>%s</code>).", sanitize(name), sanitize(u.ID)), nil
}
