package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"clippilot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// Command definitions
var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "caption",
		Description: "Fetch the original caption of an Instagram post",
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "Post or reel URL",
				Required:    true,
			},
		},
	},
	{
		Name:        "queue",
		Description: "Show the state of the caption lookup queue",
		Type:        discordgo.ChatApplicationCommand,
	},
}

// registerCommands registers slash commands with Discord
func (s *BotService) registerCommands(session *discordgo.Session, appID string) error {
	s.logger.Info("Registering slash commands...")

	// Register commands globally (takes up to 1 hour to propagate)
	if _, err := session.ApplicationCommandBulkOverwrite(appID, "", commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	s.logger.Info("Slash commands registered successfully", "count", len(commands))
	return nil
}

// onInteractionCreate handles slash command interactions
func (s *BotService) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()

	response := s.handleCommand(ctx, interaction.ApplicationCommandData(), interaction.ChannelID)

	// Send response
	if err := session.InteractionRespond(interaction.Interaction, response); err != nil {
		s.logger.Error("Failed to respond to interaction", "error", err)
	}
}

// handleCommand builds the reply for a slash command
func (s *BotService) handleCommand(ctx context.Context, command discordgo.ApplicationCommandInteractionData, channelID string) *discordgo.InteractionResponse {
	s.logger.Debug("Received slash command",
		"command", command.Name,
		"channel_id", channelID,
	)

	switch command.Name {
	case "caption":
		return s.handleCaptionCommand(ctx, command, channelID)
	case "queue":
		return s.handleQueueCommand(ctx)
	default:
		return ephemeral("Unknown command")
	}
}

// handleCaptionCommand handles the /caption command
func (s *BotService) handleCaptionCommand(ctx context.Context, command discordgo.ApplicationCommandInteractionData, channelID string) *discordgo.InteractionResponse {
	var rawURL string
	for _, option := range command.Options {
		if option.Name == "url" {
			if value, ok := option.Value.(string); ok {
				rawURL = value
			}
		}
	}

	if rawURL == "" {
		return ephemeral("❌ Please provide a post URL")
	}

	jobID, err := s.queueCaptionJob(ctx, rawURL, channelID)
	if err != nil {
		if domain.IsInvalidInput(err) {
			return ephemeral("❌ " + err.Error())
		}
		s.logger.Error("Failed to queue caption job from command", "error", err, "url", rawURL)
		return ephemeral("❌ Could not queue the lookup, please try again later")
	}

	return ephemeral(fmt.Sprintf("📝 Looking up the caption. It will be posted in this channel (job `%s`).", jobID))
}

// queueFields are the stats shown by /queue, in display order
var queueFields = []struct {
	key   string
	label string
}{
	{key: "current_pending", label: "Pending"},
	{key: "current_processing", label: "Processing"},
	{key: "current_retrying", label: "Waiting to retry"},
	{key: "current_dead", label: "Given up"},
	{key: "completed", label: "Completed"},
	{key: "total_enqueued", label: "Total queued"},
}

// handleQueueCommand handles the /queue command
func (s *BotService) handleQueueCommand(ctx context.Context) *discordgo.InteractionResponse {
	stats, err := s.queueRepo.GetQueueStats(ctx, domain.JobTypeExtractCaption)
	if err != nil {
		s.logger.Error("Failed to read queue stats", "error", err)
		return ephemeral("❌ Queue is unavailable right now")
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(queueFields))
	for _, f := range queueFields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.label,
			Value:  strconv.FormatInt(stats[f.key], 10),
			Inline: true,
		})
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:  "📊 Caption queue",
					Color:  0x0099ff,
					Fields: fields,
				},
			},
		},
	}
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
