// Package metrics holds the console's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "odoo_console"

var (
	deploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "runs_total",
			Help:      "Deployment runs by outcome",
		},
		[]string{"outcome"},
	)

	deploymentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "create_call_duration_seconds",
			Help:      "Latency of the backend create-instance call",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"outcome"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "availability_checks_total",
			Help:      "Remote availability checks by verdict",
		},
		[]string{"verdict"},
	)

	subscriptionSagas = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "sagas_total",
			Help:      "Subscription activation sagas by outcome and failing stage",
		},
		[]string{"outcome", "stage"},
	)

	gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "gate_decisions_total",
			Help:      "Auth gate decisions",
		},
		[]string{"decision"},
	)

	wizardSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "sessions_active",
			Help:      "Open wizard sessions",
		},
	)
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		deploymentsTotal,
		deploymentDuration,
		availabilityChecks,
		subscriptionSagas,
		gateDecisions,
		wizardSessions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordDeployment records a finished deployment run.
func RecordDeployment(outcome string, createLatency time.Duration) {
	deploymentsTotal.WithLabelValues(outcome).Inc()
	if createLatency > 0 {
		deploymentDuration.WithLabelValues(outcome).Observe(createLatency.Seconds())
	}
}

// RecordAvailabilityCheck records the verdict of one remote check.
func RecordAvailabilityCheck(verdict string) {
	availabilityChecks.WithLabelValues(verdict).Inc()
}

// RecordSubscriptionSaga records a saga outcome. stage is empty on success.
func RecordSubscriptionSaga(outcome, stage string) {
	subscriptionSagas.WithLabelValues(outcome, stage).Inc()
}

// RecordGateDecision records one auth gate decision.
func RecordGateDecision(decision string) {
	gateDecisions.WithLabelValues(decision).Inc()
}

// SetWizardSessions sets the open wizard session gauge.
func SetWizardSessions(n int) {
	wizardSessions.Set(float64(n))
}

// PoolStat is one worker pool's occupancy.
type PoolStat struct {
	Name    string
	Running int
	Free    int
	Cap     int
}

var (
	poolRunningDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "worker", "pool_running"),
		"Workers currently running tasks", []string{"pool"}, nil)
	poolFreeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "worker", "pool_free"),
		"Workers available for new tasks", []string{"pool"}, nil)
	poolCapDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "worker", "pool_capacity"),
		"Worker pool capacity", []string{"pool"}, nil)
)

type poolCollector struct {
	stats func() []PoolStat
}

// NewPoolCollector exports worker pool occupancy, read from stats on every
// scrape.
func NewPoolCollector(stats func() []PoolStat) prometheus.Collector {
	return poolCollector{stats: stats}
}

func (c poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolRunningDesc
	ch <- poolFreeDesc
	ch <- poolCapDesc
}

func (c poolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats() {
		ch <- prometheus.MustNewConstMetric(poolRunningDesc, prometheus.GaugeValue, float64(s.Running), s.Name)
		ch <- prometheus.MustNewConstMetric(poolFreeDesc, prometheus.GaugeValue, float64(s.Free), s.Name)
		ch <- prometheus.MustNewConstMetric(poolCapDesc, prometheus.GaugeValue, float64(s.Cap), s.Name)
	}
}
