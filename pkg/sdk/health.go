package drillscout

import (
	"context"
	"sort"

	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
)

// HealthState is the overall verdict of a health probe.
type HealthState string

// Health states, from best to worst.
const (
	HealthOK       HealthState = "ok"
	HealthDegraded HealthState = "degraded"
	HealthError    HealthState = "error"
)

// HealthStatus reports the database and embedding probes plus in-process cache sizes.
type HealthStatus struct {
	Status HealthState
	Checks map[string]string // "database", "embedding" → "ok" or "error"
	Caches map[string]int    // "embeddings", "listings", "drills", "criteria" → entries
}

// Serving reports whether search and recommendations can be answered at all.
func (h HealthStatus) Serving() bool { return h.Status != HealthError }

// SemanticSearch reports whether vector search is available.
// Without a configured embedder the probe is skipped and this stays false.
func (h HealthStatus) SemanticSearch() bool { return h.Checks["embedding"] == string(healthuc.CheckOK) }

// Failing lists the components whose probe failed, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Health probes the store and, when configured, the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: HealthState(report.Status),
		Checks: checks,
		Caches: report.Caches,
	}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
