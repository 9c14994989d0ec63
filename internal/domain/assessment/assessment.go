package assessment

import (
	"encoding/json"
	"strings"
	"time"
)

// StatusCompleted marks an assessment whose video has been fully processed.
const StatusCompleted = "completed"

// Assessment is one processed video of a player.
type Assessment struct {
	id          string
	playerID    string
	status      string
	completedAt time.Time
	metrics     map[string]any
}

// Reconstruct creates an Assessment without validation (storage hydration).
// metrics is the decoded stats.metrics object.
func Reconstruct(id, playerID, status string, completedAt time.Time, metrics map[string]any) Assessment {
	return Assessment{id: id, playerID: playerID, status: status, completedAt: completedAt, metrics: metrics}
}

// ID returns the assessment identifier.
func (a *Assessment) ID() string { return a.id }

// PlayerID returns the owning player.
func (a *Assessment) PlayerID() string { return a.playerID }

// Status returns the processing status.
func (a *Assessment) Status() string { return a.status }

// Completed reports whether processing finished.
func (a *Assessment) Completed() bool { return a.status == StatusCompleted }

// CompletedAt returns when processing finished.
func (a *Assessment) CompletedAt() time.Time { return a.completedAt }

// Metric resolves a dotted path (e.g. "hip.rotation_peak") inside stats.metrics.
// ok is false when any segment is missing or the leaf is not numeric.
func (a *Assessment) Metric(path string) (float64, bool) {
	if path == "" || a.metrics == nil {
		return 0, false
	}

	var cur any = a.metrics
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = m[seg]
		if !ok {
			return 0, false
		}
	}
	return toFloat(cur)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
