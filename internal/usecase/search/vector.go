package search

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/drillscout/internal/cache"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
	"github.com/kailas-cloud/drillscout/internal/domain/vector"
)

// DefaultMinSimilarity is the raw cosine similarity a drill needs to be returned.
const DefaultMinSimilarity = 0.3

// Hybrid score parameters.
const (
	similarityWeight = 0.8
	recencyWeight    = 0.2
	categoryBoost    = 1.2
	recencyScaleDays = 365.0
)

// VectorSearch ranks embedded drills by similarity to the query, recency and category.
type VectorSearch struct {
	rows          rowLoader
	minSimilarity float64
	now           func() time.Time
}

// NewVectorSearch creates the semantic stage reading through the snapshot cache.
// minSimilarity <= 0 takes DefaultMinSimilarity.
func NewVectorSearch(
	catalog Catalog, snapshot *cache.TTL[[]drill.Drill], timeout time.Duration, minSimilarity float64,
) *VectorSearch {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &VectorSearch{
		rows:          newRowLoader(CacheSnapshot, snapshot, catalog.ListEmbedded, timeout),
		minSimilarity: minSimilarity,
		now:           time.Now,
	}
}

// Search returns one page of ranked drills, or nil when no drill reaches the similarity threshold.
func (v *VectorSearch) Search(
	ctx context.Context, query []float32, categoryID string, skip, limit int,
) (*result.Page, error) {
	rows, err := v.rows.load(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	now := v.now()
	var hits []result.Hit
	for i := range rows {
		d := &rows[i]
		if !d.HasEmbedding() {
			continue
		}
		sim := vector.CosineSimilarity(query, d.Embedding())
		if sim < v.minSimilarity {
			continue
		}
		hits = append(hits, result.Hit{
			Drill:      rows[i],
			Score:      hybridScore(sim, recency(d.CreatedAt(), now), categoryID != "" && d.CategoryID() == categoryID),
			Similarity: sim,
		})
	}
	if len(hits) == 0 {
		return nil, nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	return &result.Page{Hits: result.Window(hits, skip, limit), Total: len(hits)}, nil
}

func hybridScore(similarity, recency float64, boosted bool) float64 {
	score := similarity*similarityWeight + recency*recencyWeight
	if boosted {
		score *= categoryBoost
	}
	return score
}

// recency decays exponentially with the drill's age in days. Future dates count as age 0.
func recency(created, now time.Time) float64 {
	age := now.Sub(created).Hours() / 24
	if age < 0 {
		age = 0
	}
	return math.Exp(-age / recencyScaleDays)
}
