// Package metrics defines the Prometheus instrumentation for the conversion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion pipeline metrics
var (
	// ConversionUnitsTotal tracks processed conversion units by outcome
	ConversionUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_units_total",
			Help: "Total conversion units processed by outcome",
		},
		[]string{"outcome"},
	)

	// QualifyingImagesTotal counts images that passed the dimension filter
	QualifyingImagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualifying_images_total",
			Help: "Total images that qualified and were accumulated",
		},
	)

	// SkippedEntriesTotal counts extracted entries rejected by the qualifier
	SkippedEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipped_entries_total",
			Help: "Extracted entries skipped by the qualifier, by reason",
		},
		[]string{"reason"},
	)

	// ActiveSessions tracks currently live sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of live conversion sessions",
		},
	)

	// SessionsSweptTotal counts abandoned sessions removed by the janitor
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Abandoned sessions removed by the TTL janitor",
		},
	)

	// UnitDuration tracks end-to-end unit processing latency in seconds
	UnitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversion_unit_duration_seconds",
			Help:    "Conversion unit processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// License service metrics
var (
	// LicenseCallsTotal tracks calls to the licensing provider by operation and status
	LicenseCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_calls_total",
			Help: "Total licensing provider calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	// SettlementFailuresTotal counts fail-open settlements (download served, credit not consumed)
	SettlementFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_failures_total",
			Help: "Settlements that failed after a successful packaging",
		},
	)
)
