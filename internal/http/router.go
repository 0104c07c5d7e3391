package http

import (
	"log/slog"
	"net/http"

	"clippilot/internal/domain"
	"clippilot/internal/http/handlers"
	"clippilot/internal/http/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the collaborators the routes need. Queue may be nil,
// in which case the caption job routes are not registered.
type RouterConfig struct {
	Extractor    handlers.CaptionExtractor
	Queue        domain.QueueRepository
	APIKey       string
	Gatherer     prometheus.Gatherer
	HealthChecks map[string]handlers.HealthCheck
}

type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	config         RouterConfig
	healthHandler  *handlers.HealthHandler
	captionHandler *handlers.CaptionHandler
	jobsHandler    *handlers.JobsHandler
	auth           *middleware.APIKeyAuth
}

func NewRouter(logger *slog.Logger, config RouterConfig) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		logger:         logger,
		config:         config,
		healthHandler:  handlers.NewHealthHandler(logger, config.HealthChecks),
		captionHandler: handlers.NewCaptionHandler(logger, config.Extractor),
	}

	if config.Queue != nil {
		r.jobsHandler = handlers.NewJobsHandler(logger, config.Queue, config.Extractor.Platform())
		r.auth = middleware.NewAPIKeyAuth(config.APIKey, logger)
	}

	return r
}

func (r *Router) SetupRoutes() http.Handler {
	// Health check
	r.mux.HandleFunc("GET /health", r.healthHandler.HandleHealth)

	// Metrics
	gatherer := r.config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Caption extraction; the second path is the one the wizard UI calls
	r.mux.HandleFunc("GET /caption-extract", r.captionHandler.HandleExtract)
	r.mux.HandleFunc("GET /api/instagram-caption", r.captionHandler.HandleExtract)

	// API v1 routes - Async caption jobs
	if r.jobsHandler != nil {
		r.mux.Handle("POST /api/v1/caption-jobs", r.auth.Middleware(http.HandlerFunc(r.jobsHandler.CreateJob)))
		r.mux.Handle("GET /api/v1/caption-jobs/{id}", r.auth.Middleware(http.HandlerFunc(r.jobsHandler.GetJob)))
	}

	return middleware.Chain(r.mux,
		middleware.RequestID,
		middleware.Logging(r.logger),
		middleware.CORS,
	)
}
