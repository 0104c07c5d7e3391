package caption

import (
	"context"
	"log/slog"
	"strings"

	"clippilot/internal/domain"
	"clippilot/internal/pkg/ytdlp"
)

// MediaResolver is an external library that resolves a post URL on its own
type MediaResolver interface {
	Resolve(ctx context.Context, rawURL string) (*ytdlp.Media, error)
}

// ResolverExtractor delegates the whole lookup to a MediaResolver
type ResolverExtractor struct {
	resolver MediaResolver
	logger   *slog.Logger
}

// NewResolverExtractor creates a new third-party resolver strategy
func NewResolverExtractor(resolver MediaResolver, logger *slog.Logger) *ResolverExtractor {
	return &ResolverExtractor{
		resolver: resolver,
		logger:   logger,
	}
}

func (e *ResolverExtractor) Name() string {
	return StrategyResolver
}

// AttemptExtract resolves the raw, unnormalized URL
func (e *ResolverExtractor) AttemptExtract(ctx context.Context, req domain.ExtractionRequest) Outcome {
	media, err := e.resolver.Resolve(ctx, req.RawURL)
	if err != nil {
		return Failed(e.Name(), err)
	}
	if media == nil {
		return NotFound(e.Name())
	}

	e.logger.Debug("Media resolved",
		"url", req.RawURL,
		"media_id", media.ID,
		"media_urls", len(media.MediaURLs),
	)

	return Found(e.Name(), strings.TrimSpace(media.Description))
}
