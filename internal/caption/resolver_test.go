package caption

import (
	"context"
	"errors"
	"testing"

	"clippilot/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postURL = "https://www.instagram.com/p/C1a2B3c4D5e/?igshid=abc"

func newTestResolver(metrics *Metrics, chain ...Strategy) *Resolver {
	return NewResolver(domain.Instagram, chain, createTestLogger(), metrics)
}

func TestResolverInvalidInput(t *testing.T) {
	strategy := newStub(StrategyStatic, Found("", "never"))
	r := newTestResolver(nil, strategy)

	for _, raw := range []string{"", "https://www.tiktok.com/@a/video/1", "not a url"} {
		_, err := r.ExtractCaption(context.Background(), raw)
		require.Error(t, err)
		assert.True(t, domain.IsInvalidInput(err), raw)
	}
	assert.Equal(t, int32(0), strategy.calls.Load())
}

func TestResolverPassesNormalizedRequest(t *testing.T) {
	var got domain.ExtractionRequest
	r := newTestResolver(nil, &recordingStrategy{got: &got})

	_, _ = r.ExtractCaption(context.Background(), postURL)
	assert.Equal(t, postURL, got.RawURL)
	assert.Equal(t, "https://www.instagram.com/p/C1a2B3c4D5e/", got.NormalizedURL)
}

func TestResolverFirstFoundWins(t *testing.T) {
	first := newStub(StrategyStatic, NotFound(""))
	second := newStub(StrategyHeadless, Found("", "Second"))
	third := newStub(StrategyResolver, Found("", "Third"))
	r := newTestResolver(nil, first, second, third)

	result, err := r.ExtractCaption(context.Background(), postURL)
	require.NoError(t, err)
	assert.Equal(t, "Second", result.Caption)
	assert.True(t, result.Found())
	assert.Equal(t, int32(0), third.calls.Load())
}

func TestResolverLastOutcomeDecides(t *testing.T) {
	cause := errors.New(`Get "https://www.instagram.com/p/C1a2B3c4D5e/": read: connection reset by peer`)

	tests := []struct {
		name         string
		chain        []Strategy
		wantNotFound bool
		wantUpstream bool
	}{
		{
			name:         "all not found",
			chain:        []Strategy{newStub(StrategyStatic, NotFound("")), newStub(StrategyComposite, NotFound(""))},
			wantNotFound: true,
		},
		{
			name:         "failure then not found",
			chain:        []Strategy{newStub(StrategyStatic, Failed("", cause)), newStub(StrategyComposite, NotFound(""))},
			wantNotFound: true,
		},
		{
			name:         "not found then failure",
			chain:        []Strategy{newStub(StrategyStatic, NotFound("")), newStub(StrategyComposite, Failed("", cause))},
			wantUpstream: true,
		},
		{
			name:         "single failure",
			chain:        []Strategy{newStub(StrategyStatic, Failed("", cause))},
			wantUpstream: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(nil, tt.chain...)
			result, err := r.ExtractCaption(context.Background(), postURL)
			require.Error(t, err)
			assert.False(t, result.Found())
			assert.Equal(t, tt.wantNotFound, domain.IsNotFound(err))
			assert.Equal(t, tt.wantUpstream, domain.IsUpstream(err))

			if tt.wantUpstream {
				var upstream *domain.UpstreamError
				require.ErrorAs(t, err, &upstream)
				assert.Equal(t, cause.Error(), upstream.Error())
				assert.ErrorIs(t, err, cause)
			}
			if tt.wantNotFound {
				assert.Equal(t, domain.NotFoundMessage, err.Error())
			}
		})
	}
}

func TestResolverCompositeChain(t *testing.T) {
	static := newStub(StrategyStatic, NotFound(""))
	headless := newStub(StrategyHeadless, Failed("", errors.New("wait timeout")))
	thirdParty := newStub(StrategyResolver, Found("", "From resolver"))
	r := newTestResolver(nil, static, NewComposite(headless, thirdParty, createTestLogger()))

	result, err := r.ExtractCaption(context.Background(), postURL)
	require.NoError(t, err)
	assert.Equal(t, "From resolver", result.Caption)
}

func TestResolverCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := newStub(StrategyStatic, NotFound(""))
	first.onCall = cancel
	second := newStub(StrategyHeadless, Found("", "late"))

	_, err := newTestResolver(nil, first, second).ExtractCaption(ctx, postURL)
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestResolverRecordsOutcomes(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	r := newTestResolver(metrics,
		newStub(StrategyStatic, Failed("", errors.New("x"))),
		newStub(StrategyComposite, Found("", "ok")),
	)

	_, err := r.ExtractCaption(context.Background(), postURL)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StrategyOutcomes.WithLabelValues(StrategyStatic, "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StrategyOutcomes.WithLabelValues(StrategyComposite, "found")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.StrategyDuration))
}

type recordingStrategy struct {
	got *domain.ExtractionRequest
}

func (s *recordingStrategy) Name() string { return "recording" }

func (s *recordingStrategy) AttemptExtract(_ context.Context, req domain.ExtractionRequest) Outcome {
	*s.got = req
	return NotFound(s.Name())
}
