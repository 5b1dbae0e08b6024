// Package metrics instruments the integrity core with Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the core's collectors behind one registry.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	mutations          *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	versionConflicts   prometheus.Counter
	lockContention     prometheus.Counter
	optimisticRetries  prometheus.Counter
	auditWriteFailures prometheus.Counter
	importRows         *prometheus.CounterVec
}

// New registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integrity_mutations_total",
			Help: "Mutations processed by the data integrity service",
		}, []string{"entity", "operation", "outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integrity_validation_failures_total",
			Help: "Field validation failures by entity",
		}, []string{"entity"}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrity_version_conflicts_total",
			Help: "Hard optimistic-concurrency conflicts",
		}),
		lockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrity_lock_contention_total",
			Help: "Rejected advisory lock acquisitions",
		}),
		optimisticRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrity_optimistic_retries_total",
			Help: "Retries performed by the optimistic workflow",
		}),
		auditWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrity_audit_write_failures_total",
			Help: "Audit entries dropped because the store write failed",
		}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integrity_import_rows_total",
			Help: "Batch import rows by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.mutations,
		m.validationFailures,
		m.versionConflicts,
		m.lockContention,
		m.optimisticRetries,
		m.auditWriteFailures,
		m.importRows,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// ObserveMutation counts one processed mutation.
func (m *Metrics) ObserveMutation(entity, operation string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.mutations.WithLabelValues(entity, operation, outcome).Inc()
}

// ObserveValidationFailure counts a failed validation pass.
func (m *Metrics) ObserveValidationFailure(entity string) {
	m.validationFailures.WithLabelValues(entity).Inc()
}

// ObserveVersionConflict counts a hard concurrency conflict.
func (m *Metrics) ObserveVersionConflict() { m.versionConflicts.Inc() }

// ObserveLockContention counts a rejected lock acquisition.
func (m *Metrics) ObserveLockContention() { m.lockContention.Inc() }

// ObserveOptimisticRetry counts one retry of the optimistic workflow.
func (m *Metrics) ObserveOptimisticRetry() { m.optimisticRetries.Inc() }

// ObserveAuditWriteFailure counts a dropped audit entry.
func (m *Metrics) ObserveAuditWriteFailure() { m.auditWriteFailures.Inc() }

// ObserveImportRow counts one import row outcome.
func (m *Metrics) ObserveImportRow(success bool) {
	outcome := "created"
	if !success {
		outcome = "failed"
	}
	m.importRows.WithLabelValues(outcome).Inc()
}
