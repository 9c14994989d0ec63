package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/assessment"
)

var keyPrefix = domain.KeyPrefix + "assessment:"

// store is the consumer interface for assessment reads (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
}

// Repo reads processed assessments of players.
type Repo struct {
	store store
}

// New creates an assessment repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Key returns the storage key of one assessment.
func Key(playerID, assessmentID string) string {
	return keyPrefix + playerID + ":" + assessmentID
}

type assessmentDoc struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"playerId"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completedAt"`
	Stats       struct {
		Metrics map[string]any `json:"metrics"`
	} `json:"stats"`
}

// RecentCompleted returns up to n completed assessments of a player, most recent first.
// Documents that fail to decode are skipped.
func (r *Repo) RecentCompleted(ctx context.Context, playerID string, n int) ([]assessment.Assessment, error) {
	if n <= 0 {
		return nil, nil
	}

	pattern := keyPrefix + playerID + ":*"
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan assessments: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("get assessments: %w", err)
	}

	out := make([]assessment.Assessment, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var docs []assessmentDoc
		if err := json.Unmarshal(raw, &docs); err != nil || len(docs) == 0 {
			continue
		}
		doc := docs[0]
		if doc.Status != assessment.StatusCompleted {
			continue
		}
		id := doc.ID
		if id == "" {
			id = strings.TrimPrefix(keys[i], keyPrefix+playerID+":")
		}
		out = append(out, assessment.Reconstruct(id, playerID, doc.Status, doc.CompletedAt, doc.Stats.Metrics))
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].CompletedAt(), out[j].CompletedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID() < out[j].ID()
	})

	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
