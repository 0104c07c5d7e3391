package caption

import (
	"context"
	"log/slog"

	"clippilot/internal/domain"
)

// Composite tries the primary strategy and falls back to the secondary
// when the primary did not find a caption. The fallback's outcome is final.
// The two never run concurrently.
type Composite struct {
	primary  Strategy
	fallback Strategy
	logger   *slog.Logger
}

// NewComposite creates a new two-level fallback strategy
func NewComposite(primary, fallback Strategy, logger *slog.Logger) *Composite {
	return &Composite{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *Composite) Name() string {
	return StrategyComposite
}

func (c *Composite) AttemptExtract(ctx context.Context, req domain.ExtractionRequest) Outcome {
	out := c.primary.AttemptExtract(ctx, req)
	if out.Kind == OutcomeFound {
		c.logger.Debug("Composite resolved by primary", "strategy", c.primary.Name(), "url", req.NormalizedURL)
		return out
	}

	attrs := []any{
		"primary", c.primary.Name(),
		"fallback", c.fallback.Name(),
		"primary_outcome", out.Kind.String(),
		"url", req.NormalizedURL,
	}
	if out.Err != nil {
		attrs = append(attrs, "error", out.Err)
	}
	c.logger.Info("Composite falling back", attrs...)

	if err := ctx.Err(); err != nil {
		return Failed(c.fallback.Name(), err)
	}

	return c.fallback.AttemptExtract(ctx, req)
}
