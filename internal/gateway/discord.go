package gateway

import (
	"html"
	"log"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type DiscordGateway struct {
	Session *discordgo.Session
	Handler Handler

	done     chan struct{}
	stopOnce sync.Once
}

func NewDiscordGateway(token string, handler Handler) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	dg := &DiscordGateway{Session: s, Handler: handler, done: make(chan struct{})}
	s.AddHandler(dg.onMessage)
	return dg, nil
}

// Start connects and blocks until Stop.
func (dg *DiscordGateway) Start() error {
	if err := dg.Session.Open(); err != nil {
		return err
	}
	log.Printf("Authorized on Discord as %s", dg.Session.State.User.Username)
	<-dg.done
	return nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if !strings.HasPrefix(strings.TrimSpace(m.Content), "/") {
		return
	}

	log.Printf("[%s] %s", m.Author.Username, m.Content)

	response := dg.Handler.Handle(m.ChannelID, m.Content)
	if err := dg.Send(m.ChannelID, response); err != nil {
		log.Printf("Error replying to channel %s: %v", m.ChannelID, err)
	}
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	_, err := dg.Session.ChannelMessageSend(chatID, htmlToMarkdown(text))
	return err
}

func (dg *DiscordGateway) Stop() error {
	var err error
	dg.stopOnce.Do(func() {
		err = dg.Session.Close()
		close(dg.done)
	})
	return err
}

var markdownReplacer = strings.NewReplacer(
	"<b>", "**", "</b>", "**",
	"<code>", "`", "</code>", "`",
)

// htmlToMarkdown rewrites the small HTML subset replies use into Discord
// markdown.
func htmlToMarkdown(s string) string {
	return html.UnescapeString(markdownReplacer.Replace(s))
}
