// Package metrics exposes prometheus counters for the ingestion pipeline.
//
// A private registry keeps process-global state out of the picture; the ops
// listener mounts Handler() and services bump counters through typed methods.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline counters
type Metrics struct {
	reg *prometheus.Registry

	issuesProcessed  *prometheus.CounterVec
	issuesSkipped    *prometheus.CounterVec
	mappingsUpserted *prometheus.CounterVec
	mappingsDeleted  *prometheus.CounterVec
	commitsInserted  *prometheus.CounterVec
	commitsDeduped   *prometheus.CounterVec
	prsUpserted      *prometheus.CounterVec
	eventsEmitted    *prometheus.CounterVec
	stepFailures     *prometheus.CounterVec
}

// New builds a Metrics with an empty private registry
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	cv := func(name, help string, labels ...string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggbridge",
			Name:      name,
			Help:      help,
		}, labels)
		m.reg.MustRegister(c)
		return c
	}

	m.issuesProcessed = cv("issues_processed_total", "Issue snapshots reconciled", "tenant", "result")
	m.issuesSkipped = cv("issues_skipped_total", "Issue snapshots skipped", "tenant", "reason")
	m.mappingsUpserted = cv("sprint_mappings_upserted_total", "Issue-sprint mappings written", "tenant")
	m.mappingsDeleted = cv("sprint_mappings_deleted_total", "Issue-sprint mappings removed", "tenant")
	m.commitsInserted = cv("commits_inserted_total", "Commits stored", "tenant", "provider")
	m.commitsDeduped = cv("commits_deduped_total", "Commits folded into an existing row", "tenant", "provider")
	m.prsUpserted = cv("pull_requests_upserted_total", "Pull requests stored or refreshed", "tenant", "provider")
	m.eventsEmitted = cv("events_emitted_total", "Domain events published", "tenant", "kind")
	m.stepFailures = cv("step_failures_total", "Reconciliation sub-steps that errored", "tenant", "step")

	m.reg.MustRegister(collectors.NewGoCollector())
	return m
}

// Handler serves the registry in prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// IssueProcessed records one reconciled issue with its outcome (new,
// updated, unchanged, reprocessed)
func (m *Metrics) IssueProcessed(tenant, result string) {
	if m == nil {
		return
	}
	m.issuesProcessed.WithLabelValues(tenant, result).Inc()
}

// IssueSkipped records one issue that did not reach the store
func (m *Metrics) IssueSkipped(tenant, reason string) {
	if m == nil {
		return
	}
	m.issuesSkipped.WithLabelValues(tenant, reason).Inc()
}

// MappingsUpserted adds n written issue-sprint mappings
func (m *Metrics) MappingsUpserted(tenant string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mappingsUpserted.WithLabelValues(tenant).Add(float64(n))
}

// MappingsDeleted adds n removed issue-sprint mappings
func (m *Metrics) MappingsDeleted(tenant string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mappingsDeleted.WithLabelValues(tenant).Add(float64(n))
}

// CommitInserted records one stored commit
func (m *Metrics) CommitInserted(tenant, provider string) {
	if m == nil {
		return
	}
	m.commitsInserted.WithLabelValues(tenant, provider).Inc()
}

// CommitDeduped records one commit folded into an existing row
func (m *Metrics) CommitDeduped(tenant, provider string) {
	if m == nil {
		return
	}
	m.commitsDeduped.WithLabelValues(tenant, provider).Inc()
}

// PRUpserted records one pull request stored or refreshed
func (m *Metrics) PRUpserted(tenant, provider string) {
	if m == nil {
		return
	}
	m.prsUpserted.WithLabelValues(tenant, provider).Inc()
}

// EventEmitted records one published domain event
func (m *Metrics) EventEmitted(tenant, kind string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(tenant, kind).Inc()
}

// StepFailure records one errored reconciliation sub-step
func (m *Metrics) StepFailure(tenant, step string) {
	if m == nil {
		return
	}
	m.stepFailures.WithLabelValues(tenant, step).Inc()
}
