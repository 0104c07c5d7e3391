package caption

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"clippilot/internal/pkg/retry"
	"clippilot/internal/render"
)

// Registry stores named strategies
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds or replaces a strategy by name
func (r *Registry) Register(strategy Strategy) {
	if strategy == nil {
		return
	}
	r.strategies[strategy.Name()] = strategy
}

// Get returns a strategy by name, or nil
func (r *Registry) Get(name string) Strategy {
	return r.strategies[name]
}

// Names returns registered strategy names in sorted order
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Chain resolves names to strategies in order. Duplicates are dropped;
// unknown names and an empty chain are errors.
func (r *Registry) Chain(names []string) ([]Strategy, error) {
	seen := make(map[string]bool, len(names))
	chain := make([]Strategy, 0, len(names))

	for _, item := range names {
		name := strings.ToLower(strings.TrimSpace(item))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		strategy := r.Get(name)
		if strategy == nil {
			return nil, fmt.Errorf("unknown caption strategy %q (available: %s)", name, strings.Join(r.Names(), ", "))
		}
		chain = append(chain, strategy)
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("empty caption strategy chain")
	}
	return chain, nil
}

// Dependencies are the collaborators the built-in strategies need
type Dependencies struct {
	HTTPClient        *http.Client
	Identity          render.Identity
	FetchTimeout      time.Duration
	Driver            render.Driver
	RenderWaitTimeout time.Duration
	MediaResolver     MediaResolver
	Logger            *slog.Logger
	Metrics           *Metrics
}

// NewDefaultRegistry registers static, headless, resolver and composite
// (headless falling back to resolver). Strategies whose collaborator is
// missing are left out.
func NewDefaultRegistry(deps Dependencies) *Registry {
	registry := NewRegistry()
	logger := deps.Logger

	registry.Register(NewStaticExtractor(StaticConfig{
		Client:   deps.HTTPClient,
		Identity: deps.Identity,
		Timeout:  deps.FetchTimeout,
		Retry:    retry.Once(),
	}, logger, deps.Metrics))

	var headless, resolver Strategy
	if deps.Driver != nil {
		headless = NewHeadlessExtractor(deps.Driver, HeadlessConfig{
			Identity:    deps.Identity,
			WaitTimeout: deps.RenderWaitTimeout,
			Retry:       retry.Once(),
		}, logger, deps.Metrics)
		registry.Register(headless)
	}
	if deps.MediaResolver != nil {
		resolver = NewResolverExtractor(deps.MediaResolver, logger)
		registry.Register(resolver)
	}
	if headless != nil && resolver != nil {
		registry.Register(NewComposite(headless, resolver, logger))
	}

	return registry
}
