package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	WorkflowsCommitted  *prometheus.CounterVec
	WorkflowsRolledBack *prometheus.CounterVec
	BestEffortFailures  *prometheus.CounterVec
	FieldsEncrypted     prometheus.Counter
	FieldDecryptErrors  prometheus.Counter
	AuditEventsShipped  prometheus.Counter
	RefLookupCacheHits  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		WorkflowsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingkod_workflows_committed_total",
			Help: "Workflow executions that committed, by workflow name",
		}, []string{"workflow"}),
		WorkflowsRolledBack: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingkod_workflows_rolled_back_total",
			Help: "Workflow executions that rolled back or failed to commit, by workflow name",
		}, []string{"workflow"}),
		BestEffortFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingkod_best_effort_failures_total",
			Help: "Post-commit side effects that failed, by workflow and action",
		}, []string{"workflow", "action"}),
		FieldsEncrypted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingkod_fields_encrypted_total",
			Help: "Sensitive fields encrypted before persistence",
		}),
		FieldDecryptErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingkod_field_decrypt_errors_total",
			Help: "Field decryptions that failed and degraded to a sentinel",
		}),
		AuditEventsShipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingkod_audit_events_shipped_total",
			Help: "Audit events published from the outbox to Kafka",
		}),
		RefLookupCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingkod_ref_lookup_cache_hits_total",
			Help: "Reference-data lookups answered from the Redis cache",
		}),
	}
}

// WorkflowCommitted implements workflow.Observer.
func (m *Metrics) WorkflowCommitted(name string) {
	m.WorkflowsCommitted.WithLabelValues(name).Inc()
}

// WorkflowRolledBack implements workflow.Observer.
func (m *Metrics) WorkflowRolledBack(name string) {
	m.WorkflowsRolledBack.WithLabelValues(name).Inc()
}

// BestEffortFailed implements workflow.Observer.
func (m *Metrics) BestEffortFailed(workflow, action string) {
	m.BestEffortFailures.WithLabelValues(workflow, action).Inc()
}

// FieldEncrypted implements the HR service's crypto metrics.
func (m *Metrics) FieldEncrypted() {
	m.FieldsEncrypted.Inc()
}

// FieldDecryptFailed implements the HR service's crypto metrics.
func (m *Metrics) FieldDecryptFailed() {
	m.FieldDecryptErrors.Inc()
}

// AuditEventShipped implements audit.Shipped.
func (m *Metrics) AuditEventShipped() {
	m.AuditEventsShipped.Inc()
}

// RefLookupCacheHit implements refdata.CacheHits.
func (m *Metrics) RefLookupCacheHit() {
	m.RefLookupCacheHits.Inc()
}
