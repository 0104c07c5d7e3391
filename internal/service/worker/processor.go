package worker

import (
	"context"
	"fmt"
	"log/slog"

	"clippilot/internal/domain"

	"github.com/mitchellh/mapstructure"
)

// CaptionExtractor resolves a caption for a post URL
type CaptionExtractor interface {
	ExtractCaption(ctx context.Context, rawURL string) (domain.CaptionResult, error)
}

// CaptionProcessor handles extract_caption jobs
type CaptionProcessor struct {
	logger    *slog.Logger
	extractor CaptionExtractor
	notifier  Notifier
}

// NewCaptionProcessor creates a new caption processor. notifier may be nil.
func NewCaptionProcessor(logger *slog.Logger, extractor CaptionExtractor, notifier Notifier) *CaptionProcessor {
	return &CaptionProcessor{
		logger:    logger,
		extractor: extractor,
		notifier:  notifier,
	}
}

// ProcessCaptionExtraction resolves the caption for a job payload and
// returns the result to store on the job. Only upstream failures and
// malformed payloads are returned as errors; those are retried by the queue.
func (p *CaptionProcessor) ProcessCaptionExtraction(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) (map[string]interface{}, error) {
	job, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}
	url, channelID := job.URL, job.ChannelID

	logger.Info("Processing caption extraction job",
		"url", url,
		"channel_id", channelID,
	)

	captionResult, err := p.extractor.ExtractCaption(ctx, url)

	var result map[string]interface{}
	var message string

	switch {
	case err == nil && captionResult.Found():
		result = map[string]interface{}{
			"caption": captionResult.Caption,
			"found":   true,
		}
		message = fmt.Sprintf("Caption for <%s>:\n%s", url, captionResult.Caption)

	case err == nil, domain.IsNotFound(err):
		result = map[string]interface{}{
			"caption": "",
			"found":   false,
			"message": domain.NotFoundMessage,
		}
		message = fmt.Sprintf("No caption found for <%s>. %s", url, domain.NotFoundMessage)

	case domain.IsInvalidInput(err):
		// Retrying cannot fix the URL, so the job completes with the error
		result = map[string]interface{}{
			"caption": "",
			"found":   false,
			"error":   err.Error(),
		}
		message = fmt.Sprintf("Could not look up <%s>: %s", url, err.Error())

	default:
		return nil, fmt.Errorf("caption extraction failed: %w", err)
	}

	logger.Info("Caption extraction finished",
		"url", url,
		"found", result["found"],
	)

	if channelID != "" && p.notifier != nil {
		if err := p.notifier.Notify(ctx, channelID, message); err != nil {
			logger.Warn("Failed to send caption notification",
				"error", err,
				"channel_id", channelID,
			)
		}
	}

	return result, nil
}

// decodePayload maps a queue payload onto CaptionJobPayload using its JSON tags
func decodePayload(payload map[string]interface{}) (domain.CaptionJobPayload, error) {
	var job domain.CaptionJobPayload

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &job,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return job, err
	}
	if err := decoder.Decode(payload); err != nil {
		return job, fmt.Errorf("invalid caption job payload: %w", err)
	}
	if job.URL == "" {
		return job, fmt.Errorf("missing or invalid url in payload")
	}
	return job, nil
}
