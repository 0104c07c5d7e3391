package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// discordMessageLimit is the maximum message length Discord accepts
const discordMessageLimit = 2000

// Notifier posts job results to a chat channel
type Notifier interface {
	Notify(ctx context.Context, channelID, message string) error
	Close() error
}

type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier sends messages through the Discord REST API
type DiscordNotifier struct {
	session *discordgo.Session
	sender  messageSender
	logger  *slog.Logger
}

// NewDiscordNotifier creates a bot session for the given token. No gateway
// connection is opened; only REST calls are made.
func NewDiscordNotifier(token string, logger *slog.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	return &DiscordNotifier{
		session: session,
		sender:  session,
		logger:  logger,
	}, nil
}

// Notify sends message to channelID, truncated to Discord's limit
func (n *DiscordNotifier) Notify(ctx context.Context, channelID, message string) error {
	msg, err := n.sender.ChannelMessageSend(channelID, truncateMessage(message, discordMessageLimit), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}

	n.logger.Debug("Discord notification sent",
		"channel_id", channelID,
		"message_id", msg.ID,
	)
	return nil
}

// Close releases the underlying session
func (n *DiscordNotifier) Close() error {
	if n.session == nil {
		return nil
	}
	return n.session.Close()
}

// truncateMessage cuts s to at most limit runes, marking the cut with an ellipsis
func truncateMessage(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
