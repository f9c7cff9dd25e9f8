package commands

import "context"

type RecordCommand struct{ *Deck }

func (c *RecordCommand) Name() string { return "record" }
func (c *RecordCommand) Description() string {
	return "Ask the agent to record a session into the open recipe."
}
func (c *RecordCommand) Usage() string { return "/record" }

func (c *RecordCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	job, err := c.Workspaces.For(chatID).Record(ctx)
	if err != nil {
		return "", err
	}
	return formatJob(job) + " The recorded steps will replace the open recipe's steps.", nil
}

type PlayCommand struct{ *Deck }

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Ask the agent to play back the open recipe." }
func (c *PlayCommand) Usage() string       { return "/play" }

func (c *PlayCommand) Execute(ctx context.Context, chatID string, args string) (string, error) {
	ws := c.Workspaces.For(chatID)
	job, err := ws.Play(ctx)
	if err != nil {
		return "", err
	}
	reply := formatJob(job)
	if _, dirty, _ := ws.Open(); dirty {
		reply += " Unsaved edits are not included."
	}
	return reply, nil
}
