// Package metrics provides Prometheus exporters for ledger core metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the verification and reward core.
var (
	// Counters.
	DatasetsAdmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasets_admitted_total",
			Help: "Total dataset admission attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReviewsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_recorded_total",
			Help: "Total review submissions by outcome",
		},
		[]string{"outcome"},
	)

	VerificationTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_transitions_total",
			Help: "Total forward transitions into the verified state",
		},
	)

	CreditsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_issued_total",
			Help: "Total ledger credits issued by reason",
		},
		[]string{"reason"},
	)

	BalanceCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_balance_cache_total",
			Help: "Balance cache lookups by result",
		},
		[]string{"result"},
	)

	PaymentForwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_forwards_total",
			Help: "Payment rail forward attempts by status",
		},
		[]string{"status"},
	)

	// Gauges.
	RegistryDatasetsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_datasets_total",
			Help: "Current number of datasets in the registry",
		},
	)

	// Histograms.
	ForwarderJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forwarder_job_duration_seconds",
			Help:    "Time taken by one payment forwarder run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)
)

// RecordAdmission records a dataset admission attempt.
func RecordAdmission(outcome string) {
	DatasetsAdmittedTotal.WithLabelValues(outcome).Inc()
}

// RecordReview records a review submission attempt.
func RecordReview(outcome string) {
	ReviewsRecordedTotal.WithLabelValues(outcome).Inc()
}

// RecordVerification records a forward verification transition.
func RecordVerification() {
	VerificationTransitionsTotal.Inc()
}

// RecordCredit records an issued ledger credit.
func RecordCredit(reason string) {
	CreditsIssuedTotal.WithLabelValues(reason).Inc()
}

// RecordBalanceCache records a balance cache hit or miss.
func RecordBalanceCache(result string) {
	BalanceCacheTotal.WithLabelValues(result).Inc()
}

// RecordPaymentForward records a payment forward attempt result.
func RecordPaymentForward(status string) {
	PaymentForwardsTotal.WithLabelValues(status).Inc()
}

// SetRegistryDatasets sets the registry dataset gauge.
func SetRegistryDatasets(count int64) {
	RegistryDatasetsTotal.Set(float64(count))
}

// ObserveForwarderJobDuration observes one forwarder run.
func ObserveForwarderJobDuration(seconds float64) {
	ForwarderJobDurationSeconds.Observe(seconds)
}
