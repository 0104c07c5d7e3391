package caption

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"clippilot/internal/domain"
	"clippilot/internal/pkg/retry"
	"clippilot/internal/render"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	}
}

var testIdentity = render.Identity{
	UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	AcceptLanguage: "en-US,en;q=0.9",
}

func testRequest(raw string) domain.ExtractionRequest {
	return domain.ExtractionRequest{RawURL: raw, NormalizedURL: raw}
}

// stubStrategy returns a fixed outcome and counts invocations
type stubStrategy struct {
	name    string
	outcome Outcome
	calls   atomic.Int32
	onCall  func()
}

func newStub(name string, outcome Outcome) *stubStrategy {
	outcome.Strategy = name
	return &stubStrategy{name: name, outcome: outcome}
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) AttemptExtract(context.Context, domain.ExtractionRequest) Outcome {
	s.calls.Add(1)
	if s.onCall != nil {
		s.onCall()
	}
	return s.outcome
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
