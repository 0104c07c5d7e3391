package caption

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"clippilot/internal/domain"
	"clippilot/internal/pkg/retry"
	"clippilot/internal/render"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxPageBytes caps how much of a post page is read
const maxPageBytes = 5 << 20

// StaticConfig configures the static markup strategy
type StaticConfig struct {
	Client   *http.Client
	Identity render.Identity
	Timeout  time.Duration
	Retry    retry.Config
}

// StaticExtractor fetches the raw post markup and probes it without
// running any script.
type StaticExtractor struct {
	client   *http.Client
	identity render.Identity
	retry    retry.Config
	logger   *slog.Logger
	metrics  *Metrics
}

// NewStaticExtractor creates a new static markup strategy
func NewStaticExtractor(config StaticConfig, logger *slog.Logger, metrics *Metrics) *StaticExtractor {
	client := config.Client
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &StaticExtractor{
		client:   client,
		identity: config.Identity,
		retry:    config.Retry,
		logger:   logger,
		metrics:  metrics,
	}
}

func (e *StaticExtractor) Name() string {
	return StrategyStatic
}

// AttemptExtract fetches req.NormalizedURL and runs the markup probes in order
func (e *StaticExtractor) AttemptExtract(ctx context.Context, req domain.ExtractionRequest) Outcome {
	body, err := e.fetch(ctx, req.NormalizedURL)
	if err != nil {
		return Failed(e.Name(), err)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Failed(e.Name(), fmt.Errorf("failed to parse page: %w", err))
	}
	doc := goquery.NewDocumentFromNode(root)

	for _, p := range staticProbes {
		if text := runProbe(e.logger, e.metrics, e.Name(), p.name, func() (string, error) {
			return p.find(doc)
		}); text != "" {
			return Found(e.Name(), text)
		}
	}

	return NotFound(e.Name())
}

// statusError is a non-2xx response from the post page
type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected response status: %s", e.Status)
}

func (e *statusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (e *StaticExtractor) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	classify := func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		var se *statusError
		if errors.As(err, &se) {
			return se.retryable()
		}
		return true
	}

	attempt := 0
	err := retry.Do(ctx, e.retry, classify, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			e.logger.Info("Retrying page fetch", "url", url, "attempt", attempt)
		}

		b, err := e.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (e *StaticExtractor) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", e.identity.UserAgent)
	httpReq.Header.Set("Accept-Language", e.identity.AcceptLanguage)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &statusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}
	return body, nil
}

// runProbe evaluates one probe in isolation. Errors and panics are logged,
// counted and reported as an empty result.
func runProbe(logger *slog.Logger, metrics *Metrics, strategy, probe string, find func() (string, error)) (text string) {
	start := time.Now()
	result := probeMiss
	var probeErr error

	defer func() {
		if r := recover(); r != nil {
			text = ""
			result = probeError
			probeErr = fmt.Errorf("probe panicked: %v", r)
		}

		metrics.observeProbe(strategy, probe, result)
		attrs := []any{
			"strategy", strategy,
			"probe", probe,
			"result", result,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if probeErr != nil {
			attrs = append(attrs, "error", probeErr)
		}
		logger.Debug("caption probe", attrs...)
	}()

	raw, err := find()
	if err != nil {
		probeErr = err
		result = probeError
		return ""
	}

	text = normalizeCaption(raw)
	if text != "" {
		result = probeHit
	}
	return text
}
