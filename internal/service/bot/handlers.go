package bot

import (
	"context"
	"strings"
	"time"

	"clippilot/internal/pkg/urldetector"

	"github.com/bwmarrin/discordgo"
)

// queuedReaction marks messages whose links were queued
const queuedReaction = "📝"

// onMessageCreate handles new Discord messages
func (s *BotService) onMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {
	// Ignore bot messages
	if message.Author == nil || message.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if s.handleMessage(ctx, message.ID, message.ChannelID, message.Content) == 0 {
		return
	}

	// Add emoji reaction to give user feedback
	if err := session.MessageReactionAdd(message.ChannelID, message.ID, queuedReaction); err != nil {
		s.logger.Warn("Failed to add emoji reaction",
			"error", err,
			"message_id", message.ID,
		)
	}
}

// handleMessage queues a caption job per post link in content and returns
// how many were queued.
func (s *BotService) handleMessage(ctx context.Context, messageID, channelID, content string) int {
	urls := s.extractPostURLs(content)
	if len(urls) == 0 {
		return 0
	}

	s.logger.Info("Detected post URLs in message",
		"message_id", messageID,
		"channel_id", channelID,
		"urls", urls,
	)

	queued := 0
	for _, rawURL := range urls {
		if _, err := s.queueCaptionJob(ctx, rawURL, channelID); err != nil {
			s.logger.Error("Failed to process URL",
				"error", err,
				"url", rawURL,
				"message_id", messageID,
			)
			continue
		}
		queued++
	}

	return queued
}

// extractPostURLs finds distinct platform post URLs in a message. Links
// are compared by their normalized form so share variants of one post
// count once.
func (s *BotService) extractPostURLs(content string) []string {
	var urls []string
	seen := make(map[string]bool)

	for _, word := range strings.Fields(content) {
		// Discord wraps links in <> to suppress embeds; trailing punctuation is not part of the URL
		candidate := strings.TrimRight(strings.TrimLeft(word, "<"), ">.,!?;:)")

		normalized, err := urldetector.NormalizeURL(candidate, s.platform)
		if err != nil {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		urls = append(urls, candidate)
	}

	return urls
}
