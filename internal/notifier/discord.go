package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/flowchartsman/retry"
	"github.com/rs/zerolog"
)

// DiscordNotifier posts portal notifications into the sangh's staff
// channel. Member-addressed messages are relayed there too, prefixed
// with the recipient, until a member-facing channel exists.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	log       zerolog.Logger
}

func NewDiscordNotifier(botToken, channelID string, log zerolog.Logger) (*DiscordNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord channel ID is empty")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID, log: log}, nil
}

func (n *DiscordNotifier) Notify(msg Message) error {
	var b strings.Builder
	if msg.Recipient == RoleStaff {
		fmt.Fprintf(&b, "📣 **%s**\n", msg.Title)
	} else {
		fmt.Fprintf(&b, "✉️ **%s** (for member %s)\n", msg.Title, msg.Recipient)
	}
	b.WriteString(msg.Body)
	if len(msg.Metadata) > 0 {
		keys := make([]string, 0, len(msg.Metadata))
		for k := range msg.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n**%s:** %s", k, msg.Metadata[k])
		}
	}

	retrier := retry.NewRetrier(3, 500*time.Millisecond, 5*time.Second)
	err := retrier.Run(func() error {
		_, sendErr := n.session.ChannelMessageSend(n.channelID, b.String())
		return sendErr
	})
	if err != nil {
		n.log.Error().Err(err).Str("kind", msg.Kind).Str("recipient", msg.Recipient).
			Msg("failed to send discord notification")
		return err
	}
	return nil
}
