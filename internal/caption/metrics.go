package caption

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe results recorded on the probe counter
const (
	probeHit   = "hit"
	probeMiss  = "miss"
	probeError = "error"
)

// Metrics holds caption extraction Prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ProbeAttempts    *prometheus.CounterVec
	StrategyOutcomes *prometheus.CounterVec
	StrategyDuration *prometheus.HistogramVec

	registerer prometheus.Registerer
}

// NewMetrics registers caption metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProbeAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caption_probe_attempts_total",
			Help: "Caption probe attempts by strategy, probe and result (hit, miss, error)",
		}, []string{"strategy", "probe", "result"}),

		StrategyOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caption_strategy_outcomes_total",
			Help: "Caption strategy outcomes by strategy and outcome (found, not_found, failed)",
		}, []string{"strategy", "outcome"}),

		StrategyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caption_strategy_duration_seconds",
			Help:    "Time spent in a single caption strategy attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"strategy"}),

		registerer: reg,
	}
}

// TrackRenderSessions exposes the number of open render sessions as a gauge
func (m *Metrics) TrackRenderSessions(active func() int) {
	if m == nil {
		return
	}
	promauto.With(m.registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "caption_render_sessions_active",
		Help: "Headless render sessions currently open",
	}, func() float64 {
		return float64(active())
	})
}

func (m *Metrics) observeProbe(strategy, probe, result string) {
	if m == nil {
		return
	}
	m.ProbeAttempts.WithLabelValues(strategy, probe, result).Inc()
}

func (m *Metrics) observeOutcome(strategy string, kind OutcomeKind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StrategyOutcomes.WithLabelValues(strategy, kind.String()).Inc()
	m.StrategyDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}
