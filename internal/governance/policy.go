package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request is one chat command about to run.
type Request struct {
	Command   string
	Arguments string
	ChatID    string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates chat commands against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies listed commands, argument patterns, and any chat
// outside the allow-list when one is configured.
type DefaultPolicyEngine struct {
	DeniedCommands map[string]bool
	DeniedRegex    []*regexp.Regexp
	AllowedChats   map[string]bool
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedCommands: make(map[string]bool),
		DeniedRegex:    make([]*regexp.Regexp, 0),
		AllowedChats:   make(map[string]bool),
	}
}

func (e *DefaultPolicyEngine) DenyCommand(name string) {
	e.DeniedCommands[normalize(name)] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

// AllowChat adds chatID to the allow-list. With an empty list every chat is
// allowed.
func (e *DefaultPolicyEngine) AllowChat(chatID string) {
	e.AllowedChats[chatID] = true
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if len(e.AllowedChats) > 0 && !e.AllowedChats[req.ChatID] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Chat '%s' is not allowed to operate this deck", req.ChatID),
		}, nil
	}

	if e.DeniedCommands[normalize(req.Command)] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Command '/%s' is restricted by system policy", normalize(req.Command)),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}
