package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rahul/stepdeck/internal/commands"
	"github.com/rahul/stepdeck/internal/governance"
	"github.com/rahul/stepdeck/internal/observability"
)

type echoCommand struct {
	err  error
	seen []string
}

func (c *echoCommand) Name() string        { return "echo" }
func (c *echoCommand) Description() string { return "Echo the arguments." }
func (c *echoCommand) Usage() string       { return "/echo <text>" }

func (c *echoCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	c.seen = append(c.seen, chatID+":"+args)
	if c.err != nil {
		return "", c.err
	}
	return args, nil
}

func newTestRouter(cmd *echoCommand) (*Router, *governance.DefaultPolicyEngine, *bytes.Buffer) {
	reg := commands.NewRegistry()
	reg.Register(cmd)
	policy := governance.NewDefaultPolicyEngine()
	var buf bytes.Buffer
	return NewRouter(reg, policy, observability.NewWriterLogger(&buf)), policy, &buf
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in         string
		name, args string
		ok         bool
	}{
		{"/echo hi there", "echo", "hi there", true},
		{"  /Echo@stepdeck_bot  a  b ", "echo", "a  b", true},
		{"/steps", "steps", "", true},
		{"hello", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand(tt.in)
		if name != tt.name || args != tt.args || ok != tt.ok {
			t.Errorf("parseCommand(%q) = %q, %q, %t", tt.in, name, args, ok)
		}
	}
}

func TestRouterRunsCommandsAndLogs(t *testing.T) {
	cmd := &echoCommand{}
	r, _, buf := newTestRouter(cmd)

	if got := r.Handle("7", "/echo hello"); got != "hello" {
		t.Errorf("reply = %q", got)
	}
	if got := r.Handle("7", "/nope"); !strings.HasPrefix(got, "Unknown command /nope") {
		t.Errorf("reply = %q", got)
	}
	if got := r.Handle("7", "just chatting"); !strings.Contains(got, "/help") {
		t.Errorf("reply = %q", got)
	}

	var evt observability.Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &evt); err != nil {
		t.Fatalf("expected exactly one command event, got %q: %v", buf.String(), err)
	}
	if evt.Type != observability.EventTypeCommand || evt.ChatID != "7" {
		t.Errorf("unexpected event: %+v", evt)
	}
}

func TestRouterAppliesPolicyBeforeExecuting(t *testing.T) {
	cmd := &echoCommand{}
	r, policy, buf := newTestRouter(cmd)
	policy.DenyCommand("echo")

	got := r.Handle("7", "/echo hi")
	if !strings.HasPrefix(got, "Denied: ") {
		t.Errorf("reply = %q", got)
	}
	if len(cmd.seen) != 0 {
		t.Errorf("denied command ran: %v", cmd.seen)
	}
	if !strings.Contains(buf.String(), `"type":"policy_check"`) {
		t.Errorf("denial not logged: %s", buf.String())
	}
}

func TestRouterReportsErrors(t *testing.T) {
	cmd := &echoCommand{err: errors.New("database is locked")}
	r, _, _ := newTestRouter(cmd)
	if got := r.Handle("7", "/echo x"); got != "failed: database is locked" {
		t.Errorf("reply = %q", got)
	}

	cmd.err = &commands.UsageError{Usage: "/echo <text>"}
	if got := r.Handle("7", "/echo"); got != "usage: /echo &lt;text&gt;" {
		t.Errorf("reply = %q", got)
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	in := "<b>Login &amp; Signup</b>\n1. NAVIGATE <code>https://x.test/?a=1&amp;b=2</code>"
	want := "**Login & Signup**\n1. NAVIGATE `https://x.test/?a=1&b=2`"
	if got := htmlToMarkdown(in); got != want {
		t.Errorf("htmlToMarkdown = %q, want %q", got, want)
	}
}
