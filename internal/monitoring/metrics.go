package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SitesProcessed *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	ErrorsTotal    *prometheus.CounterVec
	CrawlPages     prometheus.Counter
	FileFallbacks  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		SitesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_sites_processed_total",
			Help: "The total number of sites run through the pipeline",
		}, []string{"outcome"}), // 'success', 'failure'
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scraper_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g., 'fetch_failed', 'rewrite_failed', 'db_save_failed'
		CrawlPages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_crawl_pages_total",
			Help: "The total number of pages visited by multi-page crawls",
		}),
		FileFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_file_fallbacks_total",
			Help: "The total number of templates persisted to file because the database was unavailable",
		}),
	}
}

func (m *Metrics) IncProcessed(outcome string) {
	m.SitesProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *Metrics) IncErrorsTotal(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
