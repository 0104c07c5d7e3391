// Package caption extracts post captions through an ordered chain of
// strategies and reduces their outcomes to a single result.
package caption

import (
	"context"

	"clippilot/internal/domain"
)

// OutcomeKind is the tri-state result of one strategy or probe attempt
type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeFound
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// Outcome is what a strategy produced for one request. Caption is set only
// for OutcomeFound, Err only for OutcomeFailed.
type Outcome struct {
	Kind     OutcomeKind
	Caption  string
	Err      error
	Strategy string
}

// Found returns a found outcome. An empty caption is reported as not found.
func Found(strategy, caption string) Outcome {
	if caption == "" {
		return NotFound(strategy)
	}
	return Outcome{Kind: OutcomeFound, Caption: caption, Strategy: strategy}
}

// NotFound returns a confirmed-empty outcome
func NotFound(strategy string) Outcome {
	return Outcome{Kind: OutcomeNotFound, Strategy: strategy}
}

// Failed returns an outcome for a strategy that could not determine a result
func Failed(strategy string, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err, Strategy: strategy}
}

// Strategy is one self-contained way of obtaining a caption.
// AttemptExtract must not panic and must release everything it acquired
// before returning.
type Strategy interface {
	Name() string
	AttemptExtract(ctx context.Context, req domain.ExtractionRequest) Outcome
}

// Strategy names accepted by Registry.Chain
const (
	StrategyStatic    = "static"
	StrategyHeadless  = "headless"
	StrategyResolver  = "resolver"
	StrategyComposite = "composite"
)
