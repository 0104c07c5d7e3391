package caption

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeShortCircuitsOnFound(t *testing.T) {
	primary := newStub(StrategyHeadless, Found("", "Rendered caption"))
	fallback := newStub(StrategyResolver, Found("", "Resolver caption"))
	c := NewComposite(primary, fallback, createTestLogger())

	out := c.AttemptExtract(context.Background(), testRequest("https://www.instagram.com/p/abc/"))

	assert.Equal(t, OutcomeFound, out.Kind)
	assert.Equal(t, "Rendered caption", out.Caption)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(0), fallback.calls.Load(), "fallback must not run after a found caption")
}

func TestCompositeFallbackOutcomeIsFinal(t *testing.T) {
	primaryOutcomes := map[string]Outcome{
		"primary failed":    Failed("", errors.New("navigation timeout")),
		"primary not found": NotFound(""),
	}
	fallbackOutcomes := map[string]Outcome{
		"found":     Found("", "Resolver caption"),
		"not found": NotFound(""),
		"failed":    Failed("", errors.New("login required")),
	}

	for pName, pOut := range primaryOutcomes {
		for fName, fOut := range fallbackOutcomes {
			t.Run(pName+"/fallback "+fName, func(t *testing.T) {
				primary := newStub(StrategyHeadless, pOut)
				fallback := newStub(StrategyResolver, fOut)
				c := NewComposite(primary, fallback, createTestLogger())

				out := c.AttemptExtract(context.Background(), testRequest("https://www.instagram.com/p/abc/"))

				assert.Equal(t, fallback.outcome, out)
				assert.Equal(t, int32(1), primary.calls.Load())
				assert.Equal(t, int32(1), fallback.calls.Load())
			})
		}
	}
}

func TestCompositeRunsSequentially(t *testing.T) {
	var order []string
	primary := newStub(StrategyHeadless, Failed("", errors.New("x")))
	fallback := newStub(StrategyResolver, NotFound(""))
	primary.onCall = func() { order = append(order, "primary") }
	fallback.onCall = func() { order = append(order, "fallback") }

	NewComposite(primary, fallback, createTestLogger()).
		AttemptExtract(context.Background(), testRequest("https://www.instagram.com/p/abc/"))

	assert.Equal(t, []string{"primary", "fallback"}, order)
}

func TestCompositeStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := newStub(StrategyHeadless, NotFound(""))
	primary.onCall = cancel
	fallback := newStub(StrategyResolver, Found("", "late"))

	out := NewComposite(primary, fallback, createTestLogger()).
		AttemptExtract(ctx, testRequest("https://www.instagram.com/p/abc/"))

	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, int32(0), fallback.calls.Load())
}
