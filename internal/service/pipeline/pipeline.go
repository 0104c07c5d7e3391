// Package pipeline assembles the caption resolver from configuration so
// every binary wires strategies the same way.
package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"

	"clippilot/internal/caption"
	"clippilot/internal/config"
	"clippilot/internal/domain"
	"clippilot/internal/pkg/ytdlp"
	"clippilot/internal/render"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline owns the resolver and the resources behind its strategies
type Pipeline struct {
	Resolver *caption.Resolver
	Metrics  *caption.Metrics
	pool     *render.Pool
	logger   *slog.Logger
}

// Build creates the render pool, yt-dlp client and strategy registry, then
// resolves the configured chain. reg may be nil to skip metric registration.
func Build(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Pipeline, error) {
	var metrics *caption.Metrics
	if reg != nil {
		metrics = caption.NewMetrics(reg)
	}

	pool := render.NewPool(render.NewRodDriver(render.RodConfig{
		ChromePath:        cfg.ChromePath,
		NavigationTimeout: cfg.RenderTimeout,
	}, logger), cfg.MaxRenderSessions, logger)
	metrics.TrackRenderSessions(pool.Active)

	registry := caption.NewDefaultRegistry(caption.Dependencies{
		HTTPClient: &http.Client{Timeout: cfg.FetchTimeout},
		Identity: render.Identity{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		},
		FetchTimeout:      cfg.FetchTimeout,
		Driver:            pool,
		RenderWaitTimeout: cfg.RenderWaitTimeout,
		MediaResolver:     ytdlp.NewClient(cfg.YtdlpPath, cfg.YtdlpTimeout),
		Logger:            logger,
		Metrics:           metrics,
	})

	chain, err := registry.Chain(cfg.Strategies)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to build caption chain: %w", err)
	}

	names := make([]string, 0, len(chain))
	for _, strategy := range chain {
		names = append(names, strategy.Name())
	}
	logger.Info("Caption pipeline ready",
		"platform", domain.Instagram.Name,
		"strategies", names,
		"max_render_sessions", pool.Capacity(),
	)

	return &Pipeline{
		Resolver: caption.NewResolver(domain.Instagram, chain, logger, metrics),
		Metrics:  metrics,
		pool:     pool,
		logger:   logger,
	}, nil
}

// Close shuts down the headless browser if one was started
func (p *Pipeline) Close() error {
	if err := p.pool.Close(); err != nil {
		p.logger.Warn("Failed to close render pool", "error", err)
		return err
	}
	return nil
}
