package caption

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clippilot/internal/domain"
	"clippilot/internal/pkg/retry"
	"clippilot/internal/render"
)

// Selectors read from the rendered document
const (
	ogDescriptionSelector = `meta[property="og:description"]`
	contentSelector       = "article h1"
)

// Probe names for the headless strategy
const (
	ProbeRenderedOpenGraph = "og_description"
	ProbeRenderedContent   = "content_selector"
)

// HeadlessConfig configures the headless render strategy
type HeadlessConfig struct {
	Identity render.Identity
	// WaitTimeout bounds the wait for the description meta tag
	WaitTimeout time.Duration
	// Retry applies to navigation only
	Retry retry.Config
}

// HeadlessExtractor renders the post in a browser session and reads the
// caption from the live document.
type HeadlessExtractor struct {
	driver  render.Driver
	config  HeadlessConfig
	logger  *slog.Logger
	metrics *Metrics
}

// NewHeadlessExtractor creates a new headless render strategy
func NewHeadlessExtractor(driver render.Driver, config HeadlessConfig, logger *slog.Logger, metrics *Metrics) *HeadlessExtractor {
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = 10 * time.Second
	}
	return &HeadlessExtractor{
		driver:  driver,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (e *HeadlessExtractor) Name() string {
	return StrategyHeadless
}

// AttemptExtract opens a session, renders req.NormalizedURL and reads the
// description meta tag, falling back to the content selector. The session
// is closed before returning on every path.
func (e *HeadlessExtractor) AttemptExtract(ctx context.Context, req domain.ExtractionRequest) (out Outcome) {
	session, err := e.driver.NewSession(ctx, e.config.Identity)
	if err != nil {
		return Failed(e.Name(), fmt.Errorf("failed to open render session: %w", err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Warn("Failed to close render session", "error", cerr, "url", req.NormalizedURL)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			out = Failed(e.Name(), fmt.Errorf("render panicked: %v", r))
		}
	}()

	err = retry.Do(ctx, e.config.Retry, func(error) bool { return ctx.Err() == nil }, func(ctx context.Context) error {
		return session.Navigate(ctx, req.NormalizedURL)
	})
	if err != nil {
		return Failed(e.Name(), err)
	}

	// A missing meta tag after the wait is "could not determine", not empty
	var waitErr error
	description := runProbe(e.logger, e.metrics, e.Name(), ProbeRenderedOpenGraph, func() (string, error) {
		content, err := session.Attribute(ctx, ogDescriptionSelector, "content", e.config.WaitTimeout)
		if err != nil {
			waitErr = err
			return "", err
		}
		return content, nil
	})
	if waitErr != nil {
		return Failed(e.Name(), waitErr)
	}
	if description != "" {
		return Found(e.Name(), description)
	}

	text := runProbe(e.logger, e.metrics, e.Name(), ProbeRenderedContent, func() (string, error) {
		return session.Text(ctx, contentSelector)
	})
	return Found(e.Name(), text)
}
