package gateway

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/rahul/stepdeck/internal/commands"
	"github.com/rahul/stepdeck/internal/governance"
	"github.com/rahul/stepdeck/internal/observability"
)

const defaultCommandTimeout = 30 * time.Second

// Router runs chat text through the policy engine and then the command
// registry. Every gateway shares one Router.
type Router struct {
	Registry *commands.Registry
	Policy   governance.PolicyEngine
	Logger   *observability.Logger
	Timeout  time.Duration
}

func NewRouter(reg *commands.Registry, policy governance.PolicyEngine, logger *observability.Logger) *Router {
	return &Router{Registry: reg, Policy: policy, Logger: logger, Timeout: defaultCommandTimeout}
}

// Handle returns the reply for text. It never returns an empty string.
func (r *Router) Handle(chatID, text string) string {
	name, args, ok := parseCommand(text)
	if !ok {
		return "Send /help to see what I can do."
	}
	cmd := r.Registry.Get(name)
	if cmd == nil {
		return fmt.Sprintf("Unknown command /%s. Send /help.", html.EscapeString(name))
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if r.Policy != nil {
		res, err := r.Policy.Evaluate(ctx, governance.Request{Command: name, Arguments: args, ChatID: chatID})
		if err != nil {
			log.Printf("Error evaluating policy: %v", err)
			return "failed: policy check unavailable"
		}
		if res.Effect == governance.EffectDeny {
			r.Logger.LogPolicyDenied(chatID, name, res.Reason)
			return "Denied: " + html.EscapeString(res.Reason)
		}
	}

	observability.SetStatus(observability.StateBusy, "/"+name)
	defer observability.SetStatus(observability.StateServing, "")

	reply, err := cmd.Execute(ctx, chatID, args)
	r.Logger.LogCommand(chatID, name, args, err)
	if err != nil {
		if !commands.UserFacing(err) {
			log.Printf("Error running /%s for chat %s: %v", name, chatID, err)
		}
		return commands.ReplyForError(err)
	}
	if reply == "" {
		return "Done."
	}
	return reply
}

// parseCommand splits "/name@bot rest of line" into name and the raw rest.
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
