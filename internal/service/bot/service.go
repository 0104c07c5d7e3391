package bot

import (
	"context"
	"fmt"
	"log/slog"

	"clippilot/internal/config"
	"clippilot/internal/domain"
	"clippilot/internal/pkg/urldetector"

	"github.com/bwmarrin/discordgo"
)

// BotService watches Discord for post links and queues caption jobs
type BotService struct {
	config    *config.Config
	logger    *slog.Logger
	session   *discordgo.Session
	queueRepo domain.QueueRepository
	platform  domain.Platform

	// State
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new bot service
func New(config *config.Config, logger *slog.Logger, queueRepo domain.QueueRepository) (*BotService, error) {
	ctx, cancel := context.WithCancel(context.Background())

	botService := &BotService{
		config:    config,
		logger:    logger,
		queueRepo: queueRepo,
		platform:  domain.Instagram,
		ctx:       ctx,
		cancel:    cancel,
	}

	// Create Discord session
	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		cancel()
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	botService.session = session

	// Register handlers
	botService.registerHandlers()

	return botService, nil
}

// Start connects to Discord and blocks until Stop is called
func (s *BotService) Start() error {
	s.logger.Info("Starting Discord bot...")

	// Open connection to Discord
	if err := s.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	s.logger.Info("Discord bot connected successfully")
	<-s.ctx.Done()
	return nil
}

// Stop closes the Discord connection
func (s *BotService) Stop() error {
	s.cancel()

	if s.session != nil {
		s.logger.Info("Closing Discord connection...")
		if err := s.session.Close(); err != nil {
			s.logger.Error("Error closing Discord connection", "error", err)
			return err
		}
	}

	s.logger.Info("Discord bot stopped")
	return nil
}

func (s *BotService) registerHandlers() {
	s.session.AddHandler(s.onReady)
	s.session.AddHandler(s.onMessageCreate)
	s.session.AddHandler(s.onInteractionCreate)
}

// onReady is called when the bot successfully connects to Discord
func (s *BotService) onReady(session *discordgo.Session, ready *discordgo.Ready) {
	s.logger.Info("Bot is ready",
		"username", ready.User.Username,
		"guilds", len(ready.Guilds),
	)

	// Register commands now that bot is connected
	if err := s.registerCommands(session, ready.User.ID); err != nil {
		s.logger.Error("Failed to register slash commands", "error", err)
	}

	if err := session.UpdateWatchStatus(0, s.platform.Name+" captions"); err != nil {
		s.logger.Error("Failed to set bot status", "error", err)
	}
}

// queueCaptionJob validates rawURL and enqueues a caption job that reports
// back to channelID. The returned error is an *domain.InvalidInputError for
// URLs that do not belong to the platform.
func (s *BotService) queueCaptionJob(ctx context.Context, rawURL, channelID string) (string, error) {
	if _, err := urldetector.NormalizeURL(rawURL, s.platform); err != nil {
		return "", err
	}

	jobID, err := s.queueRepo.Enqueue(ctx, domain.JobTypeExtractCaption, domain.CaptionJobPayload{
		URL:       rawURL,
		ChannelID: channelID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to queue caption job: %w", err)
	}

	s.logger.Info("Caption job queued",
		"job_id", jobID,
		"url", rawURL,
		"channel_id", channelID,
	)
	return jobID, nil
}
