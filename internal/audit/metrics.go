package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline. All call sites
// tolerate a nil *Metrics so tests can run without a registry.
type Metrics struct {
	EntriesRecorded prometheus.Counter
	RecordFailures  prometheus.Counter
	AdapterErrors   prometheus.Counter
	TaskRetries     prometheus.Counter
	TasksFailed     prometheus.Counter
	EntriesPurged   prometheus.Counter
}

// NewMetrics registers the audit pipeline metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		EntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fyndora_audit_entries_recorded_total",
			Help: "Total number of audit trail entries persisted",
		}),
		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fyndora_audit_record_failures_total",
			Help: "Total number of audit trail persistence failures",
		}),
		AdapterErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fyndora_audit_adapter_errors_total",
			Help: "Total number of errors swallowed by audit signal adapters",
		}),
		TaskRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fyndora_audit_task_retries_total",
			Help: "Total number of async audit task retry attempts",
		}),
		TasksFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fyndora_audit_tasks_failed_total",
			Help: "Total number of async audit tasks that exhausted retries",
		}),
		EntriesPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fyndora_audit_entries_purged_total",
			Help: "Total number of audit trail entries removed by retention cleanup",
		}),
	}
}

func (m *Metrics) IncRecorded() {
	if m != nil {
		m.EntriesRecorded.Inc()
	}
}

func (m *Metrics) IncRecordFailure() {
	if m != nil {
		m.RecordFailures.Inc()
	}
}

func (m *Metrics) IncAdapterError() {
	if m != nil {
		m.AdapterErrors.Inc()
	}
}

func (m *Metrics) IncTaskRetry() {
	if m != nil {
		m.TaskRetries.Inc()
	}
}

func (m *Metrics) IncTaskFailed() {
	if m != nil {
		m.TasksFailed.Inc()
	}
}

func (m *Metrics) AddPurged(n int64) {
	if m != nil {
		m.EntriesPurged.Add(float64(n))
	}
}
