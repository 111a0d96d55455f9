package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	checksRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conprog",
			Name:      "checks_run_total",
			Help:      "Count of check executions by check and status.",
		},
		[]string{"check", "status"},
	)

	checkViolations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "conprog",
			Name:      "check_violations",
			Help:      "Violations found by the latest run of each check.",
		},
		[]string{"check"},
	)

	checkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conprog",
			Name:      "check_duration_seconds",
			Help:      "Time taken to run a check.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"check"},
	)

	snapshotLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conprog",
			Name:      "snapshot_loads_total",
			Help:      "Count of snapshot loads by status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conprog",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(checksRun, checkViolations, checkDuration, snapshotLoads, httpRequests)
	})
}

// Recorder feeds check results into the collectors.
type Recorder struct{}

// ObserveCheck records one check execution.
func (Recorder) ObserveCheck(name string, violations int, took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	checksRun.WithLabelValues(name, status).Inc()
	checkDuration.WithLabelValues(name).Observe(took.Seconds())
	if err == nil {
		checkViolations.WithLabelValues(name).Set(float64(violations))
	}
}

func IncSnapshotLoad(status string) {
	snapshotLoads.WithLabelValues(status).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
