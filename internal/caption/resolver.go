package caption

import (
	"context"
	"log/slog"
	"time"

	"clippilot/internal/domain"
	"clippilot/internal/pkg/urldetector"
)

// Resolver runs an ordered chain of strategies for one platform
type Resolver struct {
	platform domain.Platform
	chain    []Strategy
	logger   *slog.Logger
	metrics  *Metrics
}

// NewResolver creates a new caption resolver
func NewResolver(platform domain.Platform, chain []Strategy, logger *slog.Logger, metrics *Metrics) *Resolver {
	return &Resolver{
		platform: platform,
		chain:    chain,
		logger:   logger,
		metrics:  metrics,
	}
}

// Platform returns the platform the resolver accepts URLs for
func (r *Resolver) Platform() domain.Platform {
	return r.platform
}

// ExtractCaption validates rawURL and walks the chain. The first found
// caption wins; otherwise the last strategy's outcome decides between
// *domain.NotFoundError and *domain.UpstreamError.
func (r *Resolver) ExtractCaption(ctx context.Context, rawURL string) (domain.CaptionResult, error) {
	req, err := urldetector.NewRequest(rawURL, r.platform)
	if err != nil {
		return domain.CaptionResult{}, err
	}

	logger := r.logger.With("url", req.NormalizedURL)
	last := NotFound("")

	for _, strategy := range r.chain {
		if err := ctx.Err(); err != nil {
			return domain.CaptionResult{}, &domain.UpstreamError{Strategy: strategy.Name(), Err: err}
		}

		start := time.Now()
		out := strategy.AttemptExtract(ctx, req)
		elapsed := time.Since(start)
		r.metrics.observeOutcome(strategy.Name(), out.Kind, elapsed)

		attrs := []any{
			"strategy", strategy.Name(),
			"outcome", out.Kind.String(),
			"duration_ms", elapsed.Milliseconds(),
		}
		if out.Err != nil {
			attrs = append(attrs, "error", out.Err)
		}
		logger.Info("Caption strategy finished", attrs...)

		if out.Kind == OutcomeFound {
			return domain.CaptionResult{Caption: out.Caption}, nil
		}
		last = out
	}

	if last.Kind == OutcomeFailed {
		return domain.CaptionResult{}, &domain.UpstreamError{Strategy: last.Strategy, Err: last.Err}
	}
	return domain.CaptionResult{}, &domain.NotFoundError{URL: req.NormalizedURL}
}
