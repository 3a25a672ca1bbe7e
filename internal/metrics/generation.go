package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "querygen"

// Generation Prometheus metrics.
var (
	GeneratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_requests_total",
			Help:      "Total number of text-generation requests",
		},
		[]string{"provider", "model", "status"},
	)

	GeneratorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_request_duration_seconds",
			Help:      "Text-generation request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 120},
		},
		[]string{"provider", "model"},
	)

	CategoriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_total",
			Help:      "Keyword/category pairs by outcome",
		},
		[]string{"category", "outcome"}, // generated, cached, skipped, failed
	)

	ParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Generator responses rejected by the parser",
		},
		[]string{"reason"},
	)

	CheckpointSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_saves_total",
			Help:      "Aggregate file saves",
		},
		[]string{"status"},
	)

	CheckpointDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_duration_seconds",
			Help:      "Aggregate file save duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	KeywordsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keywords_total",
			Help:      "Keyword lines in the current input",
		},
	)

	KeywordsCompleted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keywords_completed",
			Help:      "Keywords with every category complete",
		},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Query cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers all querygen metrics with the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			GeneratorRequestsTotal,
			GeneratorRequestDuration,
			CategoriesTotal,
			ParseFailuresTotal,
			CheckpointSavesTotal,
			CheckpointDuration,
			KeywordsTotal,
			KeywordsCompleted,
			QueryCacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveCheckpoint records one aggregate save.
func ObserveCheckpoint(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CheckpointSavesTotal.WithLabelValues(status).Inc()
	CheckpointDuration.Observe(d.Seconds())
}
