// Package metrics exposes Prometheus instruments for contract analyses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

const namespace = "clausescanner"

// Metrics implements ports.Recorder.
type Metrics struct {
	analyses  *prometheus.CounterVec
	matches   *prometheus.CounterVec
	rewrites  *prometheus.CounterVec
	detection prometheus.Histogram
}

var _ ports.Recorder = (*Metrics)(nil)

// New registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Contract analyses by outcome.",
		}, []string{"status"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Risk matches by category and policy action.",
		}, []string{"category", "action"}),
		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewrites_total",
			Help:      "Rewrite attempts by outcome.",
		}, []string{"outcome"}),
		detection: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Latency of semantic risk detection, embeddings included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveAnalysis(status domain.ReportStatus) {
	m.analyses.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) ObserveMatch(category string, action domain.Action) {
	m.matches.WithLabelValues(category, string(action)).Inc()
}

func (m *Metrics) ObserveRewrite(outcome domain.RewriteOutcome) {
	m.rewrites.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ObserveDetection(seconds float64) {
	m.detection.Observe(seconds)
}
