// Package metrics holds the Prometheus collectors shared by the comparison
// pipeline. Collectors register with the default registry on first import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ColorLookups counts color canonicalizations by outcome: hit, created, skipped.
	ColorLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artdiff_color_lookups_total",
		Help: "Color canonicalizations by outcome",
	}, []string{"outcome"})

	// RevisionsResolved counts revision resolutions by outcome: created, filled, matched, conflict.
	RevisionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artdiff_revisions_resolved_total",
		Help: "Revision resolutions by outcome",
	}, []string{"outcome"})

	// ComparisonsCreated counts comparisons created, by type.
	ComparisonsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artdiff_comparisons_created_total",
		Help: "Visual comparisons created",
	}, []string{"type"})

	// ComparisonsGenerated counts difference generations by result: ok, error.
	ComparisonsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artdiff_comparisons_generated_total",
		Help: "Difference generations by result",
	}, []string{"result"})

	// DiffDuration observes the time spent normalizing and diffing a pair.
	DiffDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artdiff_diff_duration_seconds",
		Help:    "Time to normalize and diff a revision pair",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	// ChangePercent observes the rounded change score of generated comparisons.
	ChangePercent = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artdiff_change_percent",
		Help:    "Rounded change percentage of generated comparisons",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 25, 50, 100},
	})

	// QueueDepth is the number of diff jobs waiting or running.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artdiff_queue_depth",
		Help: "Diff jobs queued or running",
	})
)
