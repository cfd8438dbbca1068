package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"graylogoperator/pkg/core"
)

// Publish outcomes.
const (
	PublishPublished = "published"
	PublishUnchanged = "unchanged"
	PublishError     = "error"
)

var (
	registerOnce sync.Once

	passesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graylog_operator_passes_total",
		Help: "Total number of reconciliation passes grouped by resulting phase.",
	}, []string{"phase"})

	passHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "graylog_operator_pass_seconds",
		Help:    "Histogram of controller reconcile duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	publishesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graylog_operator_publishes_total",
		Help: "Total number of artifact publish attempts grouped by result.",
	}, []string{"result"})

	errorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "graylog_operator_errors_total",
		Help: "Total number of reconciliation errors.",
	})

	dependencySatisfied = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "graylog_operator_dependency_satisfied",
		Help: "Whether a dependency relation currently has an endpoint (1) or not (0).",
	}, []string{"instance", "kind"})

	leader = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "graylog_operator_leader",
		Help: "Whether this manager currently holds leadership (1) or not (0).",
	})
)

func ensureRegistered() {
	registerOnce.Do(func() {
		ctrlmetrics.Registry.MustRegister(passesTotal, passHistogram, publishesTotal, errorsTotal, dependencySatisfied, leader)
	})
}

// RecordPass counts a reconciliation pass by the phase it produced.
func RecordPass(phase core.Phase) {
	ensureRegistered()
	passesTotal.WithLabelValues(string(phase)).Inc()
}

// RecordReconcile observes one controller reconcile and counts it as an error when reconcileErr is set.
func RecordReconcile(duration time.Duration, reconcileErr error) {
	ensureRegistered()
	passHistogram.Observe(duration.Seconds())
	if reconcileErr != nil {
		errorsTotal.Inc()
	}
}

// RecordPublish counts a publish attempt.
func RecordPublish(result string) {
	ensureRegistered()
	publishesTotal.WithLabelValues(result).Inc()
}

// RecordDependencies mirrors dependency satisfaction for an instance.
func RecordDependencies(instance string, statuses []core.DependencyStatus) {
	ensureRegistered()
	for _, status := range statuses {
		value := 0.0
		if status.Satisfied {
			value = 1
		}
		dependencySatisfied.WithLabelValues(instance, string(status.Kind)).Set(value)
	}
}

// ForgetInstance drops the per-instance series of a deleted resource.
func ForgetInstance(instance string) {
	ensureRegistered()
	dependencySatisfied.DeletePartialMatch(prometheus.Labels{"instance": instance})
}

// RecordLeadership mirrors whether this manager leads.
func RecordLeadership(isLeader bool) {
	ensureRegistered()
	value := 0.0
	if isLeader {
		value = 1
	}
	leader.Set(value)
}
